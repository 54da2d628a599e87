package testfixtures

import (
	"context"
	"sync"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
)

type SentNotification struct {
	Kind string
	domain.Notification
}

// Notifier records every notification it is asked to send.
type Notifier struct {
	mu   sync.Mutex
	Sent []SentNotification
	Err  error
}

func (n *Notifier) record(kind string, msg domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, SentNotification{Kind: kind, Notification: msg})
	return n.Err
}

func (n *Notifier) SendConfirmation(_ context.Context, msg domain.Notification) error {
	return n.record("confirmation", msg)
}

func (n *Notifier) SendCancellation(_ context.Context, msg domain.Notification) error {
	return n.record("cancellation", msg)
}

func (n *Notifier) SendReschedule(_ context.Context, msg domain.Notification) error {
	return n.record("reschedule", msg)
}

func (n *Notifier) SendNoShow(_ context.Context, msg domain.Notification) error {
	return n.record("no_show", msg)
}

func (n *Notifier) Kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.Sent))
	for i, s := range n.Sent {
		out[i] = s.Kind
	}
	return out
}

var _ domain.Notifier = (*Notifier)(nil)
