package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"
)

// ExitVerifyFailed is the process exit code for a failed pre-flight
// verification: wrong runtime version or an application that cannot be
// loaded. Both are fatal, user-actionable conditions with no retry.
const ExitVerifyFailed = 1

// Stage identifies a step of the verification sequence.
type Stage string

const (
	// StageVersion is the runtime version check.
	StageVersion Stage = "version"
	// StageLoad is the application load check.
	StageLoad Stage = "load"
)

// versionPattern extracts the first dotted numeric version from a
// human-readable runtime descriptor such as "go1.24.3" or
// "Python 3.12.10".
var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// Version is a parsed runtime version.
type Version struct {
	Major    int
	Minor    int
	Patch    int
	HasPatch bool
}

// String renders the version in dotted form.
func (v Version) String() string {
	if v.HasPatch {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// SameMinor reports whether two versions share the same major.minor
// series. Patch releases within the series are accepted.
func (v Version) SameMinor(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor
}

// ParseVersion parses the version embedded in a runtime descriptor.
// The comparison is structural, not textual, so "3.120" never matches
// a "3.12" requirement.
func ParseVersion(descriptor string) (Version, error) {
	match := versionPattern.FindStringSubmatch(descriptor)
	if match == nil {
		return Version{}, fmt.Errorf("no version found in runtime descriptor %q", descriptor)
	}

	major, err := strconv.Atoi(match[1])
	if err != nil {
		return Version{}, fmt.Errorf("invalid major version in %q: %w", descriptor, err)
	}
	minor, err := strconv.Atoi(match[2])
	if err != nil {
		return Version{}, fmt.Errorf("invalid minor version in %q: %w", descriptor, err)
	}

	version := Version{Major: major, Minor: minor}
	if match[3] != "" {
		patch, err := strconv.Atoi(match[3])
		if err != nil {
			return Version{}, fmt.Errorf("invalid patch version in %q: %w", descriptor, err)
		}
		version.Patch = patch
		version.HasPatch = true
	}

	return version, nil
}

// LoadCheck is the application collaborator's named health check. It
// must wire the application's components and report any failure; it
// replaces load-time side effects as the loadability signal.
type LoadCheck func(ctx context.Context) error

// VerifyError reports which verification stage failed and carries the
// detected and required values plus a remediation hint for the
// operator.
type VerifyError struct {
	Stage       Stage
	Detected    string
	Required    string
	Err         error
	Remediation string
}

func (e *VerifyError) Error() string {
	switch e.Stage {
	case StageVersion:
		return fmt.Sprintf("runtime version check failed: detected %q, required %q", e.Detected, e.Required)
	case StageLoad:
		return fmt.Sprintf("application load check failed: %v", e.Err)
	default:
		return fmt.Sprintf("verification failed at stage %s: %v", e.Stage, e.Err)
	}
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// Verifier gates startup on environment correctness. All inputs are
// explicit so the sequence is testable without touching the process
// environment, and running it twice against the same inputs yields the
// same outcome.
type Verifier struct {
	// DetectedRuntime is the active runtime's descriptor, normally
	// runtime.Version().
	DetectedRuntime string
	// RequiredRuntime is the required major.minor series, e.g. "go1.24".
	RequiredRuntime string
	// Load is the application's health check, run only after the
	// version check passes.
	Load LoadCheck
	// Logger may be nil; the verifier then runs silently.
	Logger *zap.SugaredLogger
}

// Run executes the verification sequence: version check, then load
// check. The sequence is strictly linear and stops at the first
// failure, returning a *VerifyError. A nil return means the caller may
// hand off to the server.
func (v *Verifier) Run(ctx context.Context) error {
	v.logf("Running pre-flight checks...")

	if err := v.checkVersion(); err != nil {
		return err
	}

	if err := v.checkLoad(ctx); err != nil {
		return err
	}

	v.logf("Pre-flight checks passed")
	return nil
}

// checkVersion compares the detected runtime version against the
// required major.minor series.
func (v *Verifier) checkVersion() error {
	required, err := ParseVersion(v.RequiredRuntime)
	if err != nil {
		return &VerifyError{
			Stage:       StageVersion,
			Detected:    v.DetectedRuntime,
			Required:    v.RequiredRuntime,
			Err:         err,
			Remediation: "Fix the runtime.required setting so it contains a major.minor version",
		}
	}

	detected, err := ParseVersion(v.DetectedRuntime)
	if err != nil {
		return &VerifyError{
			Stage:       StageVersion,
			Detected:    v.DetectedRuntime,
			Required:    v.RequiredRuntime,
			Err:         err,
			Remediation: "The active runtime did not report a parseable version",
		}
	}

	if !detected.SameMinor(required) {
		v.logf("Runtime version mismatch: detected %s, required %s", v.DetectedRuntime, v.RequiredRuntime)
		return &VerifyError{
			Stage:       StageVersion,
			Detected:    v.DetectedRuntime,
			Required:    v.RequiredRuntime,
			Err:         fmt.Errorf("detected version %s does not match required series %s", detected, required),
			Remediation: fmt.Sprintf("Rebuild or run the gateway with a %s runtime, or update runtime.required", required),
		}
	}

	v.logf("Runtime version OK: %s matches required %s", v.DetectedRuntime, v.RequiredRuntime)
	return nil
}

// checkLoad runs the application's health check.
func (v *Verifier) checkLoad(ctx context.Context) error {
	if v.Load == nil {
		return &VerifyError{
			Stage:       StageLoad,
			Err:         errors.New("no application load check configured"),
			Remediation: "Provide a LoadCheck that wires the application's components",
		}
	}

	if err := v.Load(ctx); err != nil {
		v.logf("Application load check failed: %v", err)
		return &VerifyError{
			Stage:       StageLoad,
			Err:         err,
			Remediation: "Check the configuration and installed dependencies, then retry",
		}
	}

	v.logf("Application load check OK")
	return nil
}

func (v *Verifier) logf(format string, args ...interface{}) {
	if v.Logger != nil {
		v.Logger.Infof(format, args...)
	}
}
