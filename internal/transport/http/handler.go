package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Myykall/techhelper-ai/internal/chat"
	"github.com/Myykall/techhelper-ai/internal/notify"
	"github.com/Myykall/techhelper-ai/internal/policy"
	"github.com/Myykall/techhelper-ai/internal/store"
	"github.com/Myykall/techhelper-ai/internal/usage"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// transcriptPreviewLen is how many trailing messages go to the notifier.
const transcriptPreviewLen = 3

// Handler handles HTTP requests.
type Handler struct {
	orchestrator *chat.Orchestrator
	store        store.Store
	notifier     notify.Notifier
	policy       *policy.Engine
	providerName string
}

// NewHandler creates a new handler.
func NewHandler(orch *chat.Orchestrator, st store.Store, n notify.Notifier, pe *policy.Engine, providerName string) *Handler {
	return &Handler{
		orchestrator: orch,
		store:        st,
		notifier:     n,
		policy:       pe,
		providerName: providerName,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
	e.POST("/chat", h.Chat)
	e.GET("/session/:session_id/stats", h.SessionStats)
	e.GET("/admin/stats", h.AdminStats)
	e.POST("/session/:session_id/human-help", h.HumanHelp)
}

// Root returns service information.
// GET /
func (h *Handler) Root(c echo.Context) error {
	status := "ready"
	if !h.orchestrator.Ready() {
		status = "fallback"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"service":     "TechHelper AI",
		"version":     Version,
		"ai_provider": h.providerName,
		"status":      status,
	})
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the reply of POST /chat.
type ChatResponse struct {
	Response      string  `json:"response"`
	SessionID     string  `json:"session_id"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// Chat handles one synchronous turn.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.orchestrator.ProcessTurn(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "AI error: " + err.Error()})
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Response:      result.Response,
		SessionID:     result.SessionID,
		EstimatedCost: usage.Round(result.Cost, 6),
	})
}

// SessionStatsResponse is the reply of GET /session/:session_id/stats.
type SessionStatsResponse struct {
	SessionID         string  `json:"session_id"`
	MessageCount      int     `json:"message_count"`
	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	EstimatedCost     float64 `json:"estimated_cost"`
	CreatedAt         string  `json:"created_at"`
	LastActivity      string  `json:"last_activity"`
}

// SessionStats returns usage stats for one session.
// GET /session/:session_id/stats
func (h *Handler) SessionStats(c echo.Context) error {
	handle, ok := h.store.Get(c.Param("session_id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}

	snap := handle.Snapshot()
	return c.JSON(http.StatusOK, SessionStatsResponse{
		SessionID:         snap.ID,
		MessageCount:      snap.MessageCount,
		TotalInputTokens:  snap.TotalInputTokens,
		TotalOutputTokens: snap.TotalOutputTokens,
		EstimatedCost:     usage.Round(snap.EstimatedCost, 6),
		CreatedAt:         snap.CreatedAt.Format("2006-01-02T15:04:05.999999"),
		LastActivity:      snap.LastActivity.Format("2006-01-02T15:04:05.999999"),
	})
}

// AdminStats returns aggregate stats across all sessions.
// GET /admin/stats
func (h *Handler) AdminStats(c echo.Context) error {
	sessions := h.store.List()

	totalCost := 0.0
	totalMessages := 0
	summaries := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		totalCost += s.EstimatedCost
		totalMessages += s.MessageCount
		summaries = append(summaries, map[string]interface{}{
			"id":            s.ID,
			"messages":      s.MessageCount,
			"cost_usd":      usage.Round(s.EstimatedCost, 6),
			"last_activity": s.LastActivity.Format("2006-01-02T15:04:05.999999"),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"active_sessions":          len(sessions),
		"total_messages":           totalMessages,
		"total_estimated_cost_usd": usage.Round(totalCost, 4),
		"provider":                 h.providerName,
		"sessions":                 summaries,
	})
}

// HumanHelpRequest is the body of POST /session/:session_id/human-help.
type HumanHelpRequest struct {
	Phone string `json:"phone,omitempty"`
}

// HumanHelp triggers the escalation notifier for a session.
// POST /session/:session_id/human-help
func (h *Handler) HumanHelp(c echo.Context) error {
	sessionID := c.Param("session_id")
	handle, ok := h.store.Get(sessionID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}

	var req HumanHelpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Phone == "" {
		req.Phone = c.QueryParam("phone")
	}

	ctx := c.Request().Context()
	snap := handle.Snapshot()

	decision, reason, err := h.policy.Evaluate(ctx, map[string]interface{}{
		"session_id":     sessionID,
		"message_count":  snap.MessageCount,
		"estimated_cost": snap.EstimatedCost,
		"phone":          req.Phone,
	})
	if err != nil {
		log.Printf("WARN: escalation policy evaluation failed: %v", err)
	} else if decision == "deny" {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error":  "escalation not allowed",
			"reason": reason,
		})
	}

	if err := h.notifier.NotifyHumanHelp(ctx, &notify.Request{
		SessionID:  sessionID,
		Phone:      req.Phone,
		Transcript: tail(handle.Messages(), transcriptPreviewLen),
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to request help: " + err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":     "requested",
		"session_id": sessionID,
		"message":    "A human helper will contact you shortly. Please keep your phone nearby.",
	})
}

func tail[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
