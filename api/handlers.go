package api

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"agrigate/core"
	"agrigate/service"
	"agrigate/vulavula"
)

// getRoot reports that the gateway is up.
func (a *API) getRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "agrigate",
		"message": "AI gateway is running",
	}, a.logger)
}

// healthCheck reports liveness plus dependency health.
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"ai_configured": a.analysis.Configured(),
		"cache_healthy": a.analysis.CacheHealthy(r.Context()),
	}, a.logger)
}

// getAIStatus reports provider configuration and circuit breaker states.
func (a *API) getAIStatus(w http.ResponseWriter, r *http.Request) {
	breakers := make(map[string]string)
	for capability, state := range a.analysis.BreakerStates() {
		breakers[capability] = string(state)
	}
	breakers[vulavula.CapabilityTranscribe] = string(a.transcription.BreakerState())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"configured":       a.analysis.Configured(),
		"circuit_breakers": breakers,
		"cache_healthy":    a.analysis.CacheHealthy(r.Context()),
	}, a.logger)
}

// getLanguages lists the languages the gateway accepts, with their
// translation and speech-to-text model codes so frontends can resolve
// codes without hardcoding the maps.
func (a *API) getLanguages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"languages":          core.SupportedLanguages(),
		"language_codes":     core.TranslationCodes,
		"stt_language_codes": core.STTCodes,
	}, a.logger)
}

// postChat answers a chat message with its analysis, rendered in the
// requested language.
func (a *API) postChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := a.decodeJSONBodyWithLimit(w, r, &req, a.config.API.JSONBodyLimit); err != nil {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), err, a.logger)
		return
	}

	result, err := a.analysis.Chat(r.Context(), req.Message, req.Language)
	if err != nil {
		a.writeServiceError(w, "Chat request failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":       result.ID,
		"response": result.Content,
		"language": result.Language,
	}, a.logger)
}

// postAnalyzeText runs the full text analysis pipeline.
func (a *API) postAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req analyzeTextRequest
	if err := a.decodeJSONBodyWithLimit(w, r, &req, a.config.API.JSONBodyLimit); err != nil {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), err, a.logger)
		return
	}

	result, err := a.analysis.AnalyzeText(r.Context(), req.Content, req.Language)
	if err != nil {
		a.writeServiceError(w, "Text analysis failed", err)
		return
	}

	respondJSON(w, http.StatusOK, result, a.logger)
}

// audioUpload extracts the uploaded audio file and requested language
// from a multipart form, enforcing the audio size limit.
func (a *API) audioUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.API.MaxAudioBytes)
	if err := r.ParseMultipartForm(a.config.API.MaxAudioBytes); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "Audio file too large", err, a.logger)
		} else {
			writeError(w, http.StatusBadRequest, "Invalid multipart form", err, a.logger)
		}
		return nil, nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing audio file field 'file'", err, a.logger)
		return nil, nil, "", false
	}

	language := r.FormValue("language")
	if language == "" {
		language = core.English
	}
	return file, header, language, true
}

// postTranscribe converts uploaded audio to text.
func (a *API) postTranscribe(w http.ResponseWriter, r *http.Request) {
	file, header, language, ok := a.audioUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := a.transcription.Transcribe(r.Context(), file, header.Filename, language)
	if err != nil {
		a.writeServiceError(w, "Transcription failed", err)
		return
	}

	respondJSON(w, http.StatusOK, result, a.logger)
}

// postAnalyzeAudio transcribes uploaded audio and analyzes the
// transcription.
func (a *API) postAnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	file, header, language, ok := a.audioUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := a.transcription.AnalyzeAudio(r.Context(), file, header.Filename, language)
	if err != nil {
		a.writeServiceError(w, "Audio analysis failed", err)
		return
	}

	respondJSON(w, http.StatusOK, result, a.logger)
}

// getTestSentiment runs sentiment analysis on a sample sentence, for
// smoke-testing provider connectivity.
func (a *API) getTestSentiment(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		text = "I am very happy with this service."
	}

	result, err := a.analysis.Sentiment(r.Context(), text)
	if err != nil {
		a.writeServiceError(w, "Sentiment test failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"text":      text,
		"sentiment": result,
	}, a.logger)
}

// getTestTranslation translates a sample sentence, for smoke-testing
// provider connectivity.
func (a *API) getTestTranslation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	text := query.Get("text")
	if text == "" {
		text = "Hello, how are you?"
	}
	source := query.Get("source")
	if source == "" {
		source = core.English
	}
	target := query.Get("target")
	if target == "" {
		target = "isiZulu"
	}

	if !core.TranslationSupported(source) || !core.TranslationSupported(target) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unsupported language pair: %s -> %s", source, target), nil, a.logger)
		return
	}

	translated, err := a.analysis.Translate(r.Context(), text, core.TranslationCode(source), core.TranslationCode(target))
	if err != nil {
		a.writeServiceError(w, "Translation test failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"text":        text,
		"translation": translated,
		"source":      source,
		"target":      target,
	}, a.logger)
}

// writeServiceError maps service errors to HTTP status codes.
func (a *API) writeServiceError(w http.ResponseWriter, message string, err error) {
	var apiErr *vulavula.APIError

	switch {
	case errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrUnsupportedLanguage):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", message, err), err, a.logger)
	case errors.Is(err, service.ErrEmptyTranscription):
		writeError(w, http.StatusUnprocessableEntity, "No speech detected in the audio", err, a.logger)
	case errors.Is(err, service.ErrUpstreamNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "AI provider is not configured", err, a.logger)
	case errors.Is(err, core.ErrCircuitBreakerOpen),
		errors.Is(err, core.ErrTooManyRequests):
		writeError(w, http.StatusServiceUnavailable, "AI provider is temporarily unavailable", err, a.logger)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "AI provider timed out", err, a.logger)
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, fmt.Sprintf("%s: provider returned status %d", message, apiErr.StatusCode), err, a.logger)
	default:
		writeError(w, http.StatusInternalServerError, message, err, a.logger)
	}
}
