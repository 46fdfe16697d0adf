// Package domain defines the core data model for the chat gateway.
package domain

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
// Messages are immutable once appended; insertion order is conversation order.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}
