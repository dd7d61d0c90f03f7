package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dskvich/pmc-assistant/pkg/api/response"
	"github.com/dskvich/pmc-assistant/pkg/domain"
)

type fakeAnswerer struct {
	answer    domain.Answer
	err       error
	sessionID string
	query     string
}

func (f *fakeAnswerer) Answer(_ context.Context, sessionID, query string) (domain.Answer, error) {
	f.sessionID, f.query = sessionID, query
	if f.err != nil {
		return domain.Answer{}, f.err
	}
	if strings.TrimSpace(query) == "" {
		return domain.Answer{}, domain.ErrEmptyQuery
	}
	return f.answer, nil
}

func doChat(t *testing.T, h *chat, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.Register(e)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChat_OK(t *testing.T) {
	answerer := &fakeAnswerer{answer: domain.Answer{
		Text:    "Pay **online**.",
		Sources: []string{"https://a", "https://a"},
	}}
	h := NewChat(answerer)

	rec := doChat(t, h, `{"session_id":"abc","query":"property tax"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp response.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, "Pay **online**.", resp.Answer)
	assert.Contains(t, resp.AnswerHTML, "<strong>online</strong>")
	assert.Equal(t, []string{"https://a", "https://a"}, resp.Sources)
	assert.Equal(t, "property tax", answerer.query)
}

func TestChat_GeneratesSessionID(t *testing.T) {
	answerer := &fakeAnswerer{answer: domain.Answer{Text: "hi"}}
	h := NewChat(answerer)
	h.newID = func() string { return "generated" }

	rec := doChat(t, h, `{"query":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp response.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "generated", resp.SessionID)
	assert.Equal(t, "generated", answerer.sessionID)
	assert.NotNil(t, resp.Sources)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "malformed body", body: `{`, status: http.StatusBadRequest},
		{name: "empty query", body: `{"query":"  "}`, status: http.StatusBadRequest},
		{name: "timeout", body: `{"query":"tax"}`, err: fmt.Errorf("generating answer: %w", domain.ErrTimeout), status: http.StatusGatewayTimeout},
		{name: "unavailable", body: `{"query":"tax"}`, err: fmt.Errorf("querying index: %w", domain.ErrServiceUnavailable), status: http.StatusServiceUnavailable},
		{name: "unexpected", body: `{"query":"tax"}`, err: fmt.Errorf("saving turns: boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doChat(t, NewChat(&fakeAnswerer{err: tt.err}), tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}
