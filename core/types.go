package core

// ReplacementSentence is returned in place of analysis results when the
// downstream analysis services do not respond within the step budget.
const ReplacementSentence = "The analysis service is not responding. Please try again later."

// Sentiment labels returned by the sentiment model.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// SentimentResult summarizes per-sentence sentiment labels into an
// overall verdict plus label counts.
type SentimentResult struct {
	Overall  string `json:"overall_sentiment"`
	Positive int    `json:"positive_count"`
	Negative int    `json:"negative_count"`
	Neutral  int    `json:"neutral_count"`
}

// Entity is a single named entity extracted from text. Start and End
// are byte offsets into the analyzed text, End exclusive.
type Entity struct {
	Type  string `json:"entity"`
	Word  string `json:"word"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// EntityResult holds the named entities found in a piece of text.
type EntityResult struct {
	Entities []Entity `json:"entities"`
	Count    int      `json:"entity_count"`
}

// TranscriptionResult is the outcome of a speech-to-text call.
type TranscriptionResult struct {
	ID           string `json:"id"`
	Text         string `json:"transcription_text"`
	LanguageCode string `json:"language_code"`
	Status       string `json:"status"`
}

// AnalysisResult is the outcome of the text analysis pipeline: the
// formatted analysis translated to the requested language, plus the raw
// sentiment and entity results when available.
type AnalysisResult struct {
	ID        string           `json:"id"`
	Content   string           `json:"content"`
	Language  string           `json:"language"`
	Sentiment *SentimentResult `json:"sentiment,omitempty"`
	Entities  *EntityResult    `json:"entities,omitempty"`
}

// AudioAnalysisResult extends AnalysisResult with the English
// transcription the analysis was derived from.
type AudioAnalysisResult struct {
	ID        string           `json:"id"`
	Text      string           `json:"transcription_text"`
	Analysis  string           `json:"analysis"`
	Language  string           `json:"language"`
	Sentiment *SentimentResult `json:"sentiment,omitempty"`
	Entities  *EntityResult    `json:"entities,omitempty"`
}

// OverallSentiment derives the overall verdict from label counts: the
// strictly dominant label wins, ties are neutral.
func OverallSentiment(positive, negative, neutral int) string {
	switch {
	case positive > negative && positive > neutral:
		return SentimentPositive
	case negative > positive && negative > neutral:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
