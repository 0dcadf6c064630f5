package core

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Language codes the gateway treats specially.
const (
	// EnglishCode is the translation code for English. Pipelines pivot
	// through English before analysis.
	EnglishCode = "eng_Latn"
	// EnglishSTTCode is the transcription code for South African English.
	EnglishSTTCode = "eng"
	// English is the display name used by frontends.
	English = "English"
)

// TranslationCodes maps frontend language names to Lelapa.ai translation
// codes. Languages without model support fall back to English.
var TranslationCodes = map[string]string{
	"English":         "eng_Latn",
	"isiZulu":         "zul_Latn",
	"isiXhosa":        "xho_Latn",
	"Kiswahili":       "swh_Latn",
	"Afrikaans":       "afr_Latn",
	"Southern Sotho":  "sot_Latn",
	"Northern Sotho":  "nso_Latn",
	"Swati":           "ssw_Latn",
	"Tsonga":          "tso_Latn",
	"Tswana":          "tsn_Latn",
	"Nigerian Pidgin": "eng_Latn",
	"Portuguese":      "eng_Latn",
}

// STTCodes maps frontend language names to Lelapa.ai speech-to-text
// codes. The STT models cover fewer languages than translation, so
// several entries fall back to English.
var STTCodes = map[string]string{
	"English":         "eng",
	"isiZulu":         "zul",
	"isiXhosa":        "eng",
	"Kiswahili":       "eng",
	"Afrikaans":       "afr",
	"Southern Sotho":  "sot",
	"Nigerian Pidgin": "eng",
	"Portuguese":      "eng",
}

// TranslationCode returns the translation code for a language name,
// falling back to English for unknown names.
func TranslationCode(language string) string {
	if code, ok := TranslationCodes[language]; ok {
		return code
	}
	return EnglishCode
}

// STTCode returns the speech-to-text code for a language name, falling
// back to English for unknown names.
func STTCode(language string) string {
	if code, ok := STTCodes[language]; ok {
		return code
	}
	return EnglishSTTCode
}

// TranslationSupported reports whether a language name has a translation
// mapping.
func TranslationSupported(language string) bool {
	_, ok := TranslationCodes[language]
	return ok
}

// STTSupported reports whether a language name has a speech-to-text
// mapping.
func STTSupported(language string) bool {
	_, ok := STTCodes[language]
	return ok
}

// SupportedLanguages returns the translation language names in sorted
// order for stable API responses.
func SupportedLanguages() []string {
	names := make([]string, 0, len(TranslationCodes))
	for name := range TranslationCodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LanguageOverrides is the on-disk format for custom language mappings.
// Either section may be omitted; present entries are merged over the
// built-in maps.
type LanguageOverrides struct {
	Translation map[string]string `yaml:"translation"`
	STT         map[string]string `yaml:"stt"`
}

// LoadLanguageOverrides reads a YAML override file and merges it into
// the built-in language maps. A missing file is not an error.
func LoadLanguageOverrides(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read language overrides %s: %w", path, err)
	}

	var overrides LanguageOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse language overrides %s: %w", path, err)
	}

	for name, code := range overrides.Translation {
		if name == "" || code == "" {
			return fmt.Errorf("language overrides %s: translation entries must have non-empty name and code", path)
		}
		TranslationCodes[name] = code
	}
	for name, code := range overrides.STT {
		if name == "" || code == "" {
			return fmt.Errorf("language overrides %s: stt entries must have non-empty name and code", path)
		}
		STTCodes[name] = code
	}

	return nil
}
