// Package chat coordinates conversational turns end-to-end: session lookup,
// provider invocation, usage accounting, and history updates.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Myykall/techhelper-ai/internal/domain"
	"github.com/Myykall/techhelper-ai/internal/provider"
	"github.com/Myykall/techhelper-ai/internal/store"
	"github.com/Myykall/techhelper-ai/internal/usage"
)

// Placeholder replies used when no provider is configured. Fallback mode is a
// documented degradation, not an error.
const (
	PlaceholderResponse       = "(AI provider not configured - this is a test response)"
	PlaceholderStreamResponse = "(AI not configured - testing mode)"
)

// ErrSessionNotFound indicates the given session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// ProviderError wraps an adapter failure that aborted a turn. The turn's user
// message remains appended; no usage was recorded and no assistant message
// was persisted.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	SessionID     string
	Response      string
	Cost          float64 // this turn
	SessionCost   float64 // cumulative for the session
	TotalMessages int     // completed turns on the session
}

// Orchestrator processes turns against the session store and the configured
// provider. A nil provider puts the orchestrator into fallback mode.
type Orchestrator struct {
	store    store.Store
	provider provider.Provider
}

// New creates an orchestrator. provider may be nil for fallback mode.
func New(st store.Store, p provider.Provider) *Orchestrator {
	return &Orchestrator{store: st, provider: p}
}

// Ready reports whether a provider is configured.
func (o *Orchestrator) Ready() bool {
	return o.provider != nil
}

// ProcessTurn handles one synchronous turn. An empty sessionID creates a new
// session; an unknown one fails with ErrSessionNotFound. On provider failure
// the user message remains appended but no usage is recorded and no assistant
// message is added.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, userText string) (*TurnResult, error) {
	var h *store.Handle
	if sessionID == "" {
		h = o.store.Create()
	} else {
		var ok bool
		if h, ok = o.store.Get(sessionID); !ok {
			return nil, ErrSessionNotFound
		}
	}

	h.LockTurn()
	defer h.UnlockTurn()

	h.Update(func(s *domain.Session) {
		s.Append(domain.RoleUser, userText)
	})

	responseText := PlaceholderResponse
	if o.provider != nil {
		text, err := o.provider.Complete(ctx, h.Messages())
		if err != nil {
			return nil, &ProviderError{Err: err}
		}
		responseText = text
	}

	return o.finishTurn(h, userText, responseText), nil
}

// ProcessTurnStream handles one streaming turn, forwarding each fragment to
// onChunk while accumulating the full reply. Usage is accounted only after
// the stream has fully drained. If the adapter fails mid-stream, or onChunk
// reports a client disconnect, the turn is abandoned: no usage, no assistant
// message.
func (o *Orchestrator) ProcessTurnStream(ctx context.Context, sessionID, userText string, onChunk func(string) error) (*TurnResult, error) {
	h, ok := o.store.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	// The turn lock is held for the whole stream. This serializes a
	// session's streaming turns but never blocks unrelated sessions.
	h.LockTurn()
	defer h.UnlockTurn()

	h.Update(func(s *domain.Session) {
		s.Append(domain.RoleUser, userText)
	})

	if o.provider == nil {
		if err := onChunk(PlaceholderStreamResponse); err != nil {
			return nil, &ProviderError{Err: err}
		}
		return o.finishTurn(h, userText, PlaceholderStreamResponse), nil
	}

	var full strings.Builder
	err := o.provider.StreamComplete(ctx, h.Messages(), func(delta string) error {
		full.WriteString(delta)
		return onChunk(delta)
	})
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	return o.finishTurn(h, userText, full.String()), nil
}

// finishTurn accounts usage for a completed turn and appends the assistant
// reply. The caller holds the turn lock.
func (o *Orchestrator) finishTurn(h *store.Handle, userText, responseText string) *TurnResult {
	inputTokens := usage.EstimateTokens(userText)
	outputTokens := usage.EstimateTokens(responseText)

	var cost float64
	if o.provider != nil {
		cost = o.provider.EstimateCost(inputTokens, outputTokens)
	}

	h.Update(func(s *domain.Session) {
		usage.Apply(s, inputTokens, outputTokens, cost)
		s.Append(domain.RoleAssistant, responseText)
	})

	snap := h.Snapshot()
	return &TurnResult{
		SessionID:     snap.ID,
		Response:      responseText,
		Cost:          cost,
		SessionCost:   snap.EstimatedCost,
		TotalMessages: snap.MessageCount,
	}
}
