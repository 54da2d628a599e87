// Package payment reconciles deposit checkouts into confirmed appointments.
package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

// ErrInvalidWebhook marks a webhook payload that failed verification or parsing.
var ErrInvalidWebhook = errors.New("invalid webhook payload")

type CheckoutRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Description    string
	CustomerEmail  string
	Metadata       map[string]string
	IdempotencyKey string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// SessionStatus is what the provider reports for a checkout session.
type SessionStatus struct {
	SessionID        string
	Paid             bool
	PaymentReference string
	Metadata         map[string]string
	CustomerEmail    string
}

// Confirmation is a verified successful payment.
type Confirmation struct {
	PaymentReference string
	Metadata         map[string]string
	CustomerEmail    string
}

// WebhookEvent is a parsed provider notification. Confirmation is set when
// the event carries everything needed to reconcile; otherwise SessionID
// names a session to verify. Events with neither are ignored.
type WebhookEvent struct {
	ID           string
	Type         string
	Confirmation *Confirmation
	SessionID    string
}

type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
	ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*WebhookEvent, error)
}

// WebhookArchive keeps raw webhook payloads for later inspection.
type WebhookArchive interface {
	Archive(ctx context.Context, provider string, payload []byte) error
}

func (s *SessionStatus) confirmation() Confirmation {
	return Confirmation{
		PaymentReference: s.PaymentReference,
		Metadata:         s.Metadata,
		CustomerEmail:    s.CustomerEmail,
	}
}
