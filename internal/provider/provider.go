// Package provider abstracts heterogeneous upstream chat backends behind a
// uniform interface: synchronous completion, incremental streaming, and cost
// estimation. Each backend has its own request envelope and stream framing;
// nothing above this package knows about wire formats.
package provider

import (
	"context"
	"fmt"

	"github.com/Myykall/techhelper-ai/internal/domain"
)

// Provider is the uniform interface over one upstream chat backend.
type Provider interface {
	// Name returns the backend name used for registry lookup.
	Name() string

	// Complete sends the full conversation history and blocks until the
	// assistant's complete reply is available.
	Complete(ctx context.Context, messages []domain.Message) (string, error)

	// StreamComplete opens a streaming request and calls onDelta for each
	// textual fragment as it arrives. The stream ends when the upstream
	// closes the connection or emits its done sentinel. Frames that do not
	// parse or carry no content are skipped; a transport failure after the
	// stream has started returns an error, with all fragments delivered so
	// far already handed to onDelta.
	StreamComplete(ctx context.Context, messages []domain.Message, onDelta func(string) error) error

	// EstimateCost returns the estimated USD cost for the given token counts.
	EstimateCost(inputTokens, outputTokens int) float64
}

// UpstreamError indicates the backend answered with a non-success status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error [%d]: %s", e.Status, e.Body)
}

// UnavailableError indicates the backend could not be reached at all, or the
// connection failed mid-request.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// UnknownProviderError indicates an unrecognized provider name.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.Name)
}
