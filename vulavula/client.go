// Package vulavula is a thin HTTP client for the Lelapa.ai vulavula
// API: translation, speech-to-text transcription, sentiment analysis,
// and named entity recognition. The gateway treats the provider as an
// opaque collaborator; this package owns the wire formats only.
package vulavula

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"agrigate/core"
	"agrigate/metrics"

	"go.uber.org/zap"
)

// DefaultBaseURL is the production vulavula endpoint.
const DefaultBaseURL = "https://vulavula-services.lelapa.ai/api/v1"

// tokenHeader carries the API credential on every request.
const tokenHeader = "X-CLIENT-TOKEN"

// Capability names used in metrics and circuit breaker keys.
const (
	CapabilityTranslate  = "translate"
	CapabilitySentiment  = "sentiment"
	CapabilityEntities   = "entities"
	CapabilityTranscribe = "transcribe"
)

// Config holds client configuration.
type Config struct {
	// Token is the Lelapa.ai API credential.
	Token string
	// BaseURL overrides the production endpoint, used in tests.
	BaseURL string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// MaxRetries is the number of attempts for sentiment and entity
	// calls; translation and transcription are not retried.
	MaxRetries int
}

// Client calls the vulavula API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	logger     *zap.SugaredLogger
}

// NewClient creates a vulavula API client.
func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Configured reports whether an API token is present. Requests without
// a token fail with ErrTokenNotConfigured before any network I/O.
func (c *Client) Configured() bool {
	return c.token != ""
}

type translateRequest struct {
	InputText  string `json:"input_text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	Translation []struct {
		TranslatedText string `json:"translated_text"`
	} `json:"translation"`
}

// Translate translates text between language codes. Identical source
// and target codes short-circuit without a network call.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}

	var resp translateResponse
	err := c.postJSON(ctx, CapabilityTranslate, "/translate/process", translateRequest{
		InputText:  text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}, &resp)
	if err != nil {
		return "", err
	}

	if len(resp.Translation) == 0 || resp.Translation[0].TranslatedText == "" {
		c.logger.Warnw("Translation response contained no translated text",
			"source_lang", sourceLang,
			"target_lang", targetLang)
		return "", ErrEmptyResponse
	}

	return resp.Translation[0].TranslatedText, nil
}

type analysisRequest struct {
	EncodedText string `json:"encoded_text"`
}

// The sentiment endpoint has shipped both cased and lowercase field
// names; accept either.
type sentimentResponse struct {
	Sentiments      []sentimentEntry `json:"sentiments"`
	SentimentsUpper []sentimentEntry `json:"Sentiments"`
}

type sentimentEntry struct {
	Labels    []sentimentLabel `json:"labels"`
	Sentiment []sentimentLabel `json:"sentiment"`
}

type sentimentLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// GetSentiments runs sentiment analysis over the text. The text is
// normalized to end with punctuation since the model splits on
// sentence boundaries. Retried with exponential backoff.
func (c *Client) GetSentiments(ctx context.Context, text string) (*core.SentimentResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
		text += "."
	}

	var resp sentimentResponse
	err := c.withRetry(ctx, CapabilitySentiment, func(ctx context.Context) error {
		resp = sentimentResponse{}
		return c.postJSON(ctx, CapabilitySentiment, "/sentiment_analysis/process", analysisRequest{EncodedText: text}, &resp)
	})
	if err != nil {
		return nil, err
	}

	entries := resp.Sentiments
	if len(entries) == 0 {
		entries = resp.SentimentsUpper
	}
	if len(entries) == 0 {
		return nil, ErrEmptyResponse
	}

	result := &core.SentimentResult{}
	for _, entry := range entries {
		labels := entry.Labels
		if len(labels) == 0 {
			labels = entry.Sentiment
		}
		if len(labels) == 0 {
			continue
		}
		switch labels[0].Label {
		case core.SentimentPositive:
			result.Positive++
		case core.SentimentNegative:
			result.Negative++
		default:
			result.Neutral++
		}
	}
	result.Overall = core.OverallSentiment(result.Positive, result.Negative, result.Neutral)

	return result, nil
}

type entitiesResponse struct {
	Entities      []core.Entity `json:"entities"`
	EntitiesUpper []core.Entity `json:"Entities"`
}

// GetEntities extracts named entities from the text. An empty entity
// list is a valid result. Retried with exponential backoff.
func (c *Client) GetEntities(ctx context.Context, text string) (*core.EntityResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	var resp entitiesResponse
	err := c.withRetry(ctx, CapabilityEntities, func(ctx context.Context) error {
		resp = entitiesResponse{}
		return c.postJSON(ctx, CapabilityEntities, "/entity_recognition/process", analysisRequest{EncodedText: text}, &resp)
	})
	if err != nil {
		return nil, err
	}

	entities := resp.Entities
	if len(entities) == 0 {
		entities = resp.EntitiesUpper
	}

	return &core.EntityResult{
		Entities: entities,
		Count:    len(entities),
	}, nil
}

type transcribeResponse struct {
	ID           string `json:"id"`
	Text         string `json:"transcription_text"`
	LanguageCode string `json:"language_code"`
	Status       string `json:"transcription_status"`
	Message      string `json:"message"`
}

// Transcribe uploads audio for synchronous speech-to-text. The audio is
// streamed as a multipart upload; langCode selects the STT model.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename, langCode string) (*core.TranscriptionResult, error) {
	if !c.Configured() {
		return nil, ErrTokenNotConfigured
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart form: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	if err := writer.WriteField("lang_code", langCode); err != nil {
		return nil, fmt.Errorf("failed to write lang_code field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe/sync/file", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(tokenHeader, c.token)

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	metrics.UpstreamDuration.WithLabelValues(CapabilityTranscribe).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues(CapabilityTranscribe, "error").Inc()
		return nil, fmt.Errorf("transcribe request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		metrics.UpstreamCalls.WithLabelValues(CapabilityTranscribe, "error").Inc()
		return nil, newAPIError(CapabilityTranscribe, httpResp)
	}

	var resp transcribeResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		metrics.UpstreamCalls.WithLabelValues(CapabilityTranscribe, "error").Inc()
		return nil, fmt.Errorf("failed to decode transcribe response: %w", err)
	}

	if resp.Text == "" {
		metrics.UpstreamCalls.WithLabelValues(CapabilityTranscribe, "empty").Inc()
		return nil, ErrEmptyTranscription
	}
	metrics.UpstreamCalls.WithLabelValues(CapabilityTranscribe, "success").Inc()

	status := resp.Status
	if status == "" {
		status = "COMPLETE"
	}
	languageCode := resp.LanguageCode
	if languageCode == "" {
		languageCode = langCode
	}

	return &core.TranscriptionResult{
		ID:           resp.ID,
		Text:         resp.Text,
		LanguageCode: languageCode,
		Status:       status,
	}, nil
}

// postJSON issues an authenticated JSON POST and decodes the response.
func (c *Client) postJSON(ctx context.Context, capability, path string, payload, dest interface{}) error {
	if !c.Configured() {
		return ErrTokenNotConfigured
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", capability, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", capability, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamDuration.WithLabelValues(capability).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues(capability, "error").Inc()
		return fmt.Errorf("%s request failed: %w", capability, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamCalls.WithLabelValues(capability, "error").Inc()
		return newAPIError(capability, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		metrics.UpstreamCalls.WithLabelValues(capability, "error").Inc()
		return fmt.Errorf("failed to decode %s response: %w", capability, err)
	}

	metrics.UpstreamCalls.WithLabelValues(capability, "success").Inc()
	return nil
}

// withRetry runs fn up to maxRetries times with exponential backoff
// (1s, 2s, 4s...). Client errors from the API are not retried.
func (c *Client) withRetry(ctx context.Context, capability string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			c.logger.Warnw("Retrying upstream call",
				"capability", capability,
				"attempt", attempt+1,
				"max_attempts", c.maxRetries,
				"backoff", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
