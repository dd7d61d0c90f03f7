package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dskvich/pmc-assistant/pkg/api/response"
	"github.com/dskvich/pmc-assistant/pkg/domain"
	"github.com/dskvich/pmc-assistant/pkg/logger"
	"github.com/dskvich/pmc-assistant/pkg/metrics"
	"github.com/dskvich/pmc-assistant/pkg/render"
)

const channelHTTP = "http"

type Answerer interface {
	Answer(ctx context.Context, sessionID, query string) (domain.Answer, error)
}

type chat struct {
	answerer Answerer
	newID    func() string
}

func NewChat(answerer Answerer) *chat {
	return &chat{
		answerer: answerer,
		newID:    uuid.NewString,
	}
}

func (h *chat) Register(e *echo.Echo) {
	e.POST("/chat", h.Chat)
}

func (h *chat) Chat(c echo.Context) error {
	var req response.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "Request body must be JSON."})
	}

	ctx := c.Request().Context()

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = h.newID()
	}

	ans, err := h.answerer.Answer(ctx, sessionID, req.Query)
	metrics.ChatRequests.WithLabelValues(channelHTTP, metrics.Outcome(err)).Inc()
	if err != nil {
		status := response.StatusFor(err)
		slog.ErrorContext(ctx, "Failed to answer chat request", "sessionID", sessionID, "status", status, logger.Err(err))
		return c.JSON(status, response.ErrorResponse{Error: response.Message(status)})
	}

	sources := ans.Sources
	if sources == nil {
		sources = []string{}
	}

	return c.JSON(http.StatusOK, response.ChatResponse{
		SessionID:  sessionID,
		Answer:     ans.Text,
		AnswerHTML: render.HTML(ans.Text),
		Sources:    sources,
	})
}
