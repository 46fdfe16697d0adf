package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Myykall/techhelper-ai/internal/domain"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 0, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 1, EstimateTokens("abcdefg"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestApply(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	s := &domain.Session{ID: "sess_1", CreatedAt: created, LastActivity: created}

	Apply(s, 10, 20, 0.005)
	assert.Equal(t, 1, s.MessageCount)
	assert.Equal(t, 10, s.TotalInputTokens)
	assert.Equal(t, 20, s.TotalOutputTokens)
	assert.Equal(t, 0.005, s.EstimatedCost)
	assert.True(t, s.LastActivity.After(created))

	// Counters never decrease
	Apply(s, 5, 0, 0)
	assert.Equal(t, 2, s.MessageCount)
	assert.Equal(t, 15, s.TotalInputTokens)
	assert.Equal(t, 20, s.TotalOutputTokens)
	assert.Equal(t, 0.005, s.EstimatedCost)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.000123, Round(0.0001234999, 6))
	assert.Equal(t, 0.0001, Round(0.00012, 4))
	assert.Equal(t, 0.0, Round(0, 6))
}
