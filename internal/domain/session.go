package domain

import (
	"time"
)

// Session represents one ongoing conversation with usage tracking.
// The first message is always the system persona message. MessageCount counts
// completed (user, assistant) turns, not individual messages.
type Session struct {
	ID                string    `json:"session_id"`
	Messages          []Message `json:"-"`
	MessageCount      int       `json:"message_count"`
	TotalInputTokens  int       `json:"total_input_tokens"`
	TotalOutputTokens int       `json:"total_output_tokens"`
	EstimatedCost     float64   `json:"estimated_cost"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivity      time.Time `json:"last_activity"`
}

// Append adds a message to the conversation history.
func (s *Session) Append(role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}