// Package usage implements token estimation and per-session cost accounting.
package usage

import (
	"math"
	"time"

	"github.com/Myykall/techhelper-ai/internal/domain"
)

// EstimateTokens returns a rough token count for text (4 chars ≈ 1 token).
// This is a heuristic, not exact tokenization; both user input and assistant
// output go through the same estimator so costs stay comparable.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Apply records one completed turn on the session: counters are incremented,
// the cost is added, and last_activity is refreshed. The caller must hold the
// session's lock; Apply is invoked exactly once per completed turn.
func Apply(s *domain.Session, inputTokens, outputTokens int, cost float64) {
	s.MessageCount++
	s.TotalInputTokens += inputTokens
	s.TotalOutputTokens += outputTokens
	s.EstimatedCost += cost
	s.LastActivity = time.Now()
}

// Round trims a cost to the given number of decimal places for presentation.
func Round(cost float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(cost*factor) / factor
}
