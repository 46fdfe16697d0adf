// Package notify delivers human-escalation requests. Delivery itself (SMS,
// email) is an external collaborator; this package exposes the hook and keeps
// a durable log of requests for helpers to work through.
package notify

import (
	"context"
	"log"

	"github.com/Myykall/techhelper-ai/internal/domain"
)

// Request is one human-help escalation.
type Request struct {
	SessionID  string
	Phone      string // optional contact number
	Transcript []domain.Message
}

// Notifier is the escalation hook consumed by the transport layer.
type Notifier interface {
	NotifyHumanHelp(ctx context.Context, req *Request) error
}

// LogNotifier writes escalations to the process log. Used when no escalation
// database is configured.
type LogNotifier struct{}

var _ Notifier = (*LogNotifier)(nil)

// NotifyHumanHelp logs the request.
func (LogNotifier) NotifyHumanHelp(ctx context.Context, req *Request) error {
	log.Printf("HUMAN HELP REQUESTED - session: %s", req.SessionID)
	if req.Phone != "" {
		log.Printf("  phone: %s", req.Phone)
	}
	for _, msg := range req.Transcript {
		log.Printf("  [%s] %s", msg.Role, msg.Content)
	}
	return nil
}
