package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		descriptor string
		major      int
		minor      int
		patch      int
		hasPatch   bool
	}{
		{"go1.24.3", 1, 24, 3, true},
		{"go1.24", 1, 24, 0, false},
		{"Python 3.12.10", 3, 12, 10, true},
		{"Python 3.12", 3, 12, 0, false},
		{"CPython 3.14.2 (main)", 3, 14, 2, true},
		{"3.120", 3, 120, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			version, err := ParseVersion(tt.descriptor)
			require.NoError(t, err)
			assert.Equal(t, tt.major, version.Major)
			assert.Equal(t, tt.minor, version.Minor)
			assert.Equal(t, tt.patch, version.Patch)
			assert.Equal(t, tt.hasPatch, version.HasPatch)
		})
	}
}

func TestParseVersionRejectsNonVersions(t *testing.T) {
	for _, descriptor := range []string{"", "go", "devel", "version unknown"} {
		_, err := ParseVersion(descriptor)
		assert.Error(t, err, "descriptor %q should not parse", descriptor)
	}
}

func TestSameMinorIsStructuralNotTextual(t *testing.T) {
	required, err := ParseVersion("3.12")
	require.NoError(t, err)

	// 3.120 contains "3.12" as a prefix but is a different minor.
	detected, err := ParseVersion("3.120")
	require.NoError(t, err)
	assert.False(t, detected.SameMinor(required))

	patch, err := ParseVersion("3.12.10")
	require.NoError(t, err)
	assert.True(t, patch.SameMinor(required))
}

func TestVerifierVersionMismatchAborts(t *testing.T) {
	loadCalled := false
	verifier := &Verifier{
		DetectedRuntime: "Python 3.14.2",
		RequiredRuntime: "Python 3.12",
		Load: func(ctx context.Context) error {
			loadCalled = true
			return nil
		},
	}

	err := verifier.Run(context.Background())
	require.Error(t, err)

	var verifyErr *VerifyError
	require.ErrorAs(t, err, &verifyErr)
	assert.Equal(t, StageVersion, verifyErr.Stage)
	// The diagnostic names both the detected and the required version.
	assert.Contains(t, verifyErr.Error(), "Python 3.14.2")
	assert.Contains(t, verifyErr.Error(), "Python 3.12")
	assert.NotEmpty(t, verifyErr.Remediation)

	// The load check never runs after a version failure.
	assert.False(t, loadCalled)
}

func TestVerifierPassesWithinRequiredSeries(t *testing.T) {
	loadCalled := false
	verifier := &Verifier{
		DetectedRuntime: "Python 3.12.10",
		RequiredRuntime: "Python 3.12",
		Load: func(ctx context.Context) error {
			loadCalled = true
			return nil
		},
	}

	require.NoError(t, verifier.Run(context.Background()))
	assert.True(t, loadCalled)
}

func TestVerifierLoadFailureAborts(t *testing.T) {
	loadErr := errors.New("missing dependency: libfoo")
	verifier := &Verifier{
		DetectedRuntime: "go1.24.3",
		RequiredRuntime: "go1.24",
		Load: func(ctx context.Context) error {
			return loadErr
		},
	}

	err := verifier.Run(context.Background())
	require.Error(t, err)

	var verifyErr *VerifyError
	require.ErrorAs(t, err, &verifyErr)
	assert.Equal(t, StageLoad, verifyErr.Stage)
	assert.ErrorIs(t, err, loadErr)
}

func TestVerifierMissingLoadCheckFails(t *testing.T) {
	verifier := &Verifier{
		DetectedRuntime: "go1.24.3",
		RequiredRuntime: "go1.24",
	}

	err := verifier.Run(context.Background())
	var verifyErr *VerifyError
	require.ErrorAs(t, err, &verifyErr)
	assert.Equal(t, StageLoad, verifyErr.Stage)
}

func TestVerifierUnparseableRequirement(t *testing.T) {
	verifier := &Verifier{
		DetectedRuntime: "go1.24.3",
		RequiredRuntime: "latest",
		Load:            func(ctx context.Context) error { return nil },
	}

	err := verifier.Run(context.Background())
	var verifyErr *VerifyError
	require.ErrorAs(t, err, &verifyErr)
	assert.Equal(t, StageVersion, verifyErr.Stage)
}

// Running the same verifier twice yields the same outcome; the check
// sequence has no hidden state.
func TestVerifierIsIdempotent(t *testing.T) {
	calls := 0
	verifier := &Verifier{
		DetectedRuntime: "go1.24.3",
		RequiredRuntime: "go1.24",
		Load: func(ctx context.Context) error {
			calls++
			return nil
		},
	}

	require.NoError(t, verifier.Run(context.Background()))
	require.NoError(t, verifier.Run(context.Background()))
	assert.Equal(t, 2, calls)

	failing := &Verifier{
		DetectedRuntime: "go1.23.1",
		RequiredRuntime: "go1.24",
		Load:            func(ctx context.Context) error { return nil },
	}
	first := failing.Run(context.Background())
	second := failing.Run(context.Background())
	require.Error(t, first)
	require.Error(t, second)
	assert.Equal(t, first.Error(), second.Error())
}
