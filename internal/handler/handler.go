package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"stockroom/internal/model"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already out; nothing useful to tell the client.
		return
	}
}

// writeError writes an error body carrying the code, message and request id.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	requestID := middleware.GetReqID(r.Context())
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.
		Str("code", code).
		Str("error", message).
		Int("status", status).
		Str("request_id", requestID).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: requestID,
	})
}

// writeServiceError maps err to a status and writes it. Storage and unknown
// errors never leak their underlying text.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, status int, logger zerolog.Logger) {
	code := model.ErrorCode(err)
	message := err.Error()

	switch code {
	case model.ErrCodeStorageFailure:
		if model.IsContention(err) {
			logger.Warn().Err(err).Msg("storage contention")
			message = "request conflicted with concurrent updates, please retry"
			break
		}
		logger.Error().Err(err).Msg("storage failure")
		message = "storage failure, please retry"
	case model.ErrCodeInternalError:
		logger.Error().Err(err).Msg("unexpected error")
		message = "internal server error"
	}

	writeError(w, r, status, code, message, logger)
}

// statusFor returns the default HTTP status for a domain error code.
func statusFor(err error) int {
	switch model.ErrorCode(err) {
	case model.ErrCodeValidation,
		model.ErrCodeInvalidJSON,
		model.ErrCodeInvalidStatus,
		model.ErrCodeInsufficientStock,
		model.ErrCodeDuplicateName:
		return http.StatusBadRequest
	case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidStatusTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a bounded request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewDomainError(model.ErrCodeInvalidJSON, "request body is required")
		}
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body")
	}
	return nil
}

// Health handles GET /health requests.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
