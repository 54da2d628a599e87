package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	mppreference "github.com/mercadopago/sdk-go/pkg/preference"

	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/payment"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

// mpReferencePrefix keeps MercadoPago payment ids apart from Stripe ones
// in the shared payment reference column.
const mpReferencePrefix = "mp_"

type preferenceCreator interface {
	Create(ctx context.Context, request mppreference.Request) (*mppreference.Response, error)
}

type paymentGetter interface {
	Get(ctx context.Context, id int) (*mppayment.Response, error)
}

type MercadoPagoOptions struct {
	AccessToken     string
	WebhookSecret   string
	SuccessURL      string
	FailureURL      string
	NotificationURL string
}

// MercadoPagoProvider runs deposit checkouts through Checkout Pro
// preferences. A "session" is a MercadoPago payment id.
type MercadoPagoProvider struct {
	preferences preferenceCreator
	payments    paymentGetter
	opts        MercadoPagoOptions
	logger      *logging.Logger
}

func NewMercadoPagoProvider(opts MercadoPagoOptions, logger *logging.Logger) (*MercadoPagoProvider, error) {
	cfg, err := mpconfig.New(opts.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}
	return newMercadoPagoProvider(mppreference.NewClient(cfg), mppayment.NewClient(cfg), opts, logger), nil
}

func newMercadoPagoProvider(
	preferences preferenceCreator,
	payments paymentGetter,
	opts MercadoPagoOptions,
	logger *logging.Logger,
) *MercadoPagoProvider {
	if logger == nil {
		logger = logging.Default()
	}
	return &MercadoPagoProvider{
		preferences: preferences,
		payments:    payments,
		opts:        opts,
		logger:      logger,
	}
}

func (m *MercadoPagoProvider) Name() string {
	return "mercadopago"
}

func (m *MercadoPagoProvider) CreateCheckoutSession(
	ctx context.Context,
	req payment.CheckoutRequest,
) (*payment.CheckoutSession, error) {

	amount, _ := req.Amount.Round(2).Float64()

	metadata := make(map[string]any, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	request := mppreference.Request{
		Items: []mppreference.ItemRequest{{
			Title:      req.Description,
			Quantity:   1,
			UnitPrice:  amount,
			CurrencyID: strings.ToUpper(req.Currency),
		}},
		Metadata:          metadata,
		ExternalReference: req.IdempotencyKey,
		NotificationURL:   m.opts.NotificationURL,
	}
	if m.opts.SuccessURL != "" || m.opts.FailureURL != "" {
		request.BackURLs = &mppreference.BackURLsRequest{
			Success: m.opts.SuccessURL,
			Pending: m.opts.SuccessURL,
			Failure: m.opts.FailureURL,
		}
	}
	if req.CustomerEmail != "" {
		request.Payer = &mppreference.PayerRequest{Email: req.CustomerEmail}
	}

	pref, err := m.preferences.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("mercadopago preference: %w", err)
	}
	return &payment.CheckoutSession{ID: pref.ID, URL: pref.InitPoint}, nil
}

func (m *MercadoPagoProvider) RetrieveSession(ctx context.Context, sessionID string) (*payment.SessionStatus, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(sessionID, mpReferencePrefix))
	if err != nil {
		return nil, fmt.Errorf("mercadopago payment id %q: %w", sessionID, err)
	}

	p, err := m.payments.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mercadopago payment: %w", err)
	}

	metadata := make(map[string]string, len(p.Metadata))
	for k, v := range p.Metadata {
		if v != nil {
			metadata[k] = fmt.Sprint(v)
		}
	}

	return &payment.SessionStatus{
		SessionID:        sessionID,
		Paid:             p.Status == "approved",
		PaymentReference: mpReferencePrefix + strconv.Itoa(p.ID),
		Metadata:         metadata,
		CustomerEmail:    p.Payer.Email,
	}, nil
}

// ParseWebhook accepts signed payment notifications. They only carry the
// payment id, so the event is returned as a session to verify.
func (m *MercadoPagoProvider) ParseWebhook(
	_ context.Context,
	payload []byte,
	header http.Header,
) (*payment.WebhookEvent, error) {

	if m.opts.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", payment.ErrInvalidWebhook)
	}

	var body struct {
		ID     json.Number `json:"id"`
		Type   string      `json:"type"`
		Action string      `json:"action"`
		Data   struct {
			ID json.Number `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidWebhook, err)
	}

	dataID := body.Data.ID.String()
	if !verifyMercadoPagoSignature(m.opts.WebhookSecret, dataID, header.Get("X-Request-Id"), header.Get("X-Signature")) {
		return nil, fmt.Errorf("%w: signature mismatch", payment.ErrInvalidWebhook)
	}

	ev := &payment.WebhookEvent{ID: body.ID.String(), Type: body.Type}
	if body.Type == "payment" && dataID != "" {
		ev.SessionID = dataID
	}
	return ev, nil
}

// verifyMercadoPagoSignature checks "ts=...,v1=..." against
// HMAC-SHA256(secret, "id:<data.id>;request-id:<x-request-id>;ts:<ts>;").
func verifyMercadoPagoSignature(secret, dataID, requestID, header string) bool {
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			sig = kv[1]
		}
	}
	if ts == "" || sig == "" {
		return false
	}

	manifest := "id:" + strings.ToLower(dataID) + ";"
	if requestID != "" {
		manifest += "request-id:" + requestID + ";"
	}
	manifest += "ts:" + ts + ";"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hmac.Equal([]byte(sig), []byte(hex.EncodeToString(mac.Sum(nil))))
}

var _ payment.Provider = (*MercadoPagoProvider)(nil)
