package core

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslationCodeFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, "zul_Latn", TranslationCode("isiZulu"))
	assert.Equal(t, EnglishCode, TranslationCode("English"))
	assert.Equal(t, EnglishCode, TranslationCode("Klingon"))
}

func TestSTTCodeFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, "zul", STTCode("isiZulu"))
	// Languages without an STT model map to the English model.
	assert.Equal(t, EnglishSTTCode, STTCode("Kiswahili"))
	assert.Equal(t, EnglishSTTCode, STTCode("Klingon"))
}

func TestSupportedLanguagesIsSorted(t *testing.T) {
	languages := SupportedLanguages()
	require.NotEmpty(t, languages)
	assert.True(t, sort.StringsAreSorted(languages))
	assert.Contains(t, languages, "English")
	assert.Contains(t, languages, "isiZulu")
}

func TestLoadLanguageOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "languages.yaml")
	content := []byte("translation:\n  Shona: sna_Latn\nstt:\n  Shona: eng\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	require.NoError(t, LoadLanguageOverrides(path))
	t.Cleanup(func() {
		delete(TranslationCodes, "Shona")
		delete(STTCodes, "Shona")
	})

	assert.Equal(t, "sna_Latn", TranslationCode("Shona"))
	assert.True(t, TranslationSupported("Shona"))
	assert.Equal(t, "eng", STTCode("Shona"))
}

func TestLoadLanguageOverridesMissingFileIsNotAnError(t *testing.T) {
	assert.NoError(t, LoadLanguageOverrides(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.NoError(t, LoadLanguageOverrides(""))
}

func TestLoadLanguageOverridesRejectsEmptyEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "languages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("translation:\n  Shona: \"\"\n"), 0644))

	assert.Error(t, LoadLanguageOverrides(path))
}

func TestOverallSentiment(t *testing.T) {
	assert.Equal(t, SentimentPositive, OverallSentiment(3, 1, 1))
	assert.Equal(t, SentimentNegative, OverallSentiment(1, 3, 1))
	assert.Equal(t, SentimentNeutral, OverallSentiment(0, 0, 3))
	// Ties are neutral.
	assert.Equal(t, SentimentNeutral, OverallSentiment(2, 2, 0))
	assert.Equal(t, SentimentNeutral, OverallSentiment(0, 0, 0))
}
