package vulavula

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"agrigate/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		Token:      "test-token",
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	}, zap.NewNop().Sugar())
}

func TestTranslate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate/process", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-CLIENT-TOKEN"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req["input_text"])
		assert.Equal(t, "eng_Latn", req["source_lang"])
		assert.Equal(t, "zul_Latn", req["target_lang"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"translation": []map[string]string{{"translated_text": "sawubona"}},
		})
	}))

	translated, err := client.Translate(context.Background(), "hello", "eng_Latn", "zul_Latn")
	require.NoError(t, err)
	assert.Equal(t, "sawubona", translated)
}

func TestTranslateSameLanguageShortCircuits(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no network call expected for identical language codes")
	}))

	translated, err := client.Translate(context.Background(), "hello", "eng_Latn", "eng_Latn")
	require.NoError(t, err)
	assert.Equal(t, "hello", translated)
}

func TestTranslateEmptyResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"translation": []interface{}{}})
	}))

	_, err := client.Translate(context.Background(), "hello", "eng_Latn", "zul_Latn")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestMissingTokenFailsBeforeNetworkIO(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, zap.NewNop().Sugar())
	assert.False(t, client.Configured())

	_, err := client.Translate(context.Background(), "hello", "eng_Latn", "zul_Latn")
	assert.ErrorIs(t, err, ErrTokenNotConfigured)

	_, err = client.GetSentiments(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrTokenNotConfigured)

	_, err = client.Transcribe(context.Background(), strings.NewReader("audio"), "a.wav", "eng")
	assert.ErrorIs(t, err, ErrTokenNotConfigured)
}

func TestGetSentimentsNormalizesPunctuationAndCounts(t *testing.T) {
	var received string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sentiment_analysis/process", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received = req["encoded_text"]

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"sentiments": []map[string]interface{}{
				{"labels": []map[string]interface{}{{"label": "positive", "score": 0.9}}},
				{"labels": []map[string]interface{}{{"label": "positive", "score": 0.8}}},
				{"labels": []map[string]interface{}{{"label": "negative", "score": 0.7}}},
			},
		})
	}))

	result, err := client.GetSentiments(context.Background(), "  I am happy today")
	require.NoError(t, err)

	// The model splits on sentence boundaries, so input gets trailing
	// punctuation appended.
	assert.Equal(t, "I am happy today.", received)
	assert.Equal(t, 2, result.Positive)
	assert.Equal(t, 1, result.Negative)
	assert.Equal(t, core.SentimentPositive, result.Overall)
}

func TestGetSentimentsAcceptsCasedResponseVariant(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"Sentiments": []map[string]interface{}{
				{"sentiment": []map[string]interface{}{{"label": "negative", "score": 0.9}}},
			},
		})
	}))

	result, err := client.GetSentiments(context.Background(), "terrible.")
	require.NoError(t, err)
	assert.Equal(t, core.SentimentNegative, result.Overall)
}

func TestGetSentimentsRejectsEmptyInput(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := client.GetSentiments(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"entities": []map[string]interface{}{},
		})
	}))

	result, err := client.GetEntities(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, result.Count)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	_, err := client.GetEntities(context.Background(), "hello")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTranscribe(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe/sync/file", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "zul", r.FormValue("lang_code"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "voice.wav", header.Filename)

		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":                 "trans_123",
			"transcription_text": "sawubona mhlaba",
		})
	}))

	result, err := client.Transcribe(context.Background(), strings.NewReader("fake audio"), "voice.wav", "zul")
	require.NoError(t, err)
	assert.Equal(t, "trans_123", result.ID)
	assert.Equal(t, "sawubona mhlaba", result.Text)
	assert.Equal(t, "zul", result.LanguageCode)
	assert.Equal(t, "COMPLETE", result.Status)
}

func TestTranscribeEmptyText(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "trans_123"})
	}))

	_, err := client.Transcribe(context.Background(), strings.NewReader("fake audio"), "voice.wav", "eng")
	assert.ErrorIs(t, err, ErrEmptyTranscription)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(ErrTokenNotConfigured))
	assert.False(t, isRetryable(ErrEmptyInput))
	assert.False(t, isRetryable(&APIError{StatusCode: http.StatusBadRequest}))
	assert.True(t, isRetryable(&APIError{StatusCode: http.StatusInternalServerError}))
	assert.True(t, isRetryable(&APIError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, isRetryable(errors.New("connection reset")))
}
