package provider

import (
	"context"

	"github.com/Myykall/techhelper-ai/internal/domain"
)

// Mock is a scriptable Provider implementation for testing.
type Mock struct {
	// Response is returned by Complete.
	Response string
	// Chunks are emitted by StreamComplete, in order.
	Chunks []string
	// CompleteErr fails Complete before producing anything.
	CompleteErr error
	// StreamErr fails StreamComplete after all Chunks were emitted,
	// simulating a transport failure mid-stream.
	StreamErr error
	// Cost is returned by EstimateCost regardless of token counts.
	Cost float64

	// CompleteCalls counts Complete invocations.
	CompleteCalls int
}

// Ensure Mock implements Provider.
var _ Provider = (*Mock)(nil)

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	m.CompleteCalls++
	if m.CompleteErr != nil {
		return "", m.CompleteErr
	}
	return m.Response, nil
}

func (m *Mock) StreamComplete(ctx context.Context, messages []domain.Message, onDelta func(string) error) error {
	for _, chunk := range m.Chunks {
		if err := onDelta(chunk); err != nil {
			return err
		}
	}
	return m.StreamErr
}

func (m *Mock) EstimateCost(inputTokens, outputTokens int) float64 {
	return m.Cost
}
