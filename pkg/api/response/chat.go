package response

import (
	"errors"
	"net/http"

	"github.com/dskvich/pmc-assistant/pkg/domain"
)

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type ChatResponse struct {
	SessionID  string   `json:"session_id"`
	Answer     string   `json:"answer"`
	AnswerHTML string   `json:"answer_html"`
	Sources    []string `json:"sources"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps pipeline errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-facing text for a status; internal details stay in logs.
func Message(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Query must not be empty."
	case http.StatusGatewayTimeout:
		return "The assistant took too long to answer. Please try again."
	case http.StatusServiceUnavailable:
		return "The assistant is temporarily unavailable. Please try again later."
	default:
		return "Something went wrong while answering."
	}
}
