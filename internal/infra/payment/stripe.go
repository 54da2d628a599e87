package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BruksfildServices01/salon-scheduler/internal/usecase/payment"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

const (
	stripeAPIVersion   = "2024-12-18.acacia"
	signatureTolerance = 5 * time.Minute
)

// StripeProvider talks to the Stripe Checkout Sessions API over plain HTTP.
type StripeProvider struct {
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
	baseURL       string
	httpClient    *http.Client
	now           func() time.Time
	logger        *logging.Logger
}

func NewStripeProvider(secretKey, webhookSecret, successURL, cancelURL string, logger *logging.Logger) *StripeProvider {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeProvider{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
		baseURL:       "https://api.stripe.com",
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
		logger:        logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeProvider) WithBaseURL(baseURL string) *StripeProvider {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

func (s *StripeProvider) WithClock(now func() time.Time) *StripeProvider {
	s.now = now
	return s
}

func (s *StripeProvider) Name() string {
	return "stripe"
}

// ======================================================
// CHECKOUT
// ======================================================

func (s *StripeProvider) CreateCheckoutSession(
	ctx context.Context,
	req payment.CheckoutRequest,
) (*payment.CheckoutSession, error) {

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Deposit"
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(minorUnits(req.Amount), 10))
	form.Set("line_items[0][price_data][product_data][name]", description)
	form.Set("line_items[0][quantity]", "1")

	if s.successURL != "" {
		successURL := s.successURL
		if !strings.Contains(successURL, "{CHECKOUT_SESSION_ID}") {
			successURL = appendQuery(successURL, "session_id={CHECKOUT_SESSION_ID}")
		}
		form.Set("success_url", successURL)
	}
	if s.cancelURL != "" {
		form.Set("cancel_url", s.cancelURL)
	}
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}

	// metadata goes on both the session and the payment intent
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
		form.Set("payment_intent_data[metadata]["+k+"]", v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("stripe request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	var session stripeSession
	if err := s.do(httpReq, &session); err != nil {
		return nil, err
	}
	if session.URL == "" {
		return nil, fmt.Errorf("stripe response missing checkout url")
	}

	return &payment.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (s *StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (*payment.SessionStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("stripe request: %w", err)
	}

	var session stripeSession
	if err := s.do(httpReq, &session); err != nil {
		return nil, err
	}
	return session.status(), nil
}

func (s *StripeProvider) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", stripeAPIVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("stripe api status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("stripe decode: %w", err)
	}
	return nil
}

// ======================================================
// WEBHOOK
// ======================================================

func (s *StripeProvider) ParseWebhook(
	_ context.Context,
	payload []byte,
	header http.Header,
) (*payment.WebhookEvent, error) {

	if s.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", payment.ErrInvalidWebhook)
	}
	if !verifyStripeSignature(s.webhookSecret, payload, header.Get("Stripe-Signature"), s.now()) {
		return nil, fmt.Errorf("%w: signature mismatch", payment.ErrInvalidWebhook)
	}

	var ev struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object stripeSession `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidWebhook, err)
	}

	out := &payment.WebhookEvent{ID: ev.ID, Type: ev.Type}
	switch ev.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		status := ev.Data.Object.status()
		if status.Paid {
			out.Confirmation = &payment.Confirmation{
				PaymentReference: status.PaymentReference,
				Metadata:         status.Metadata,
				CustomerEmail:    status.CustomerEmail,
			}
		}
	}
	return out, nil
}

// verifyStripeSignature checks a "t=...,v1=..." header against
// HMAC-SHA256(secret, "t.payload").
func verifyStripeSignature(secret string, payload []byte, header string, now time.Time) bool {
	if header == "" {
		return false
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}

// ======================================================
// WIRE TYPES
// ======================================================

// stripeSession is the subset of a Checkout Session we read.
type stripeSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntent   json.RawMessage   `json:"payment_intent"`
	Metadata        map[string]string `json:"metadata"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

func (s stripeSession) status() *payment.SessionStatus {
	ref := s.paymentIntentID()
	if ref == "" {
		ref = s.ID
	}
	email := s.CustomerEmail
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		email = s.CustomerDetails.Email
	}
	return &payment.SessionStatus{
		SessionID:        s.ID,
		Paid:             s.PaymentStatus == "paid",
		PaymentReference: ref,
		Metadata:         s.Metadata,
		CustomerEmail:    email,
	}
}

// paymentIntentID accepts both the bare id and the expanded object.
func (s stripeSession) paymentIntentID() string {
	if len(s.PaymentIntent) == 0 {
		return ""
	}
	var id string
	if json.Unmarshal(s.PaymentIntent, &id) == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(s.PaymentIntent, &obj) == nil {
		return obj.ID
	}
	return ""
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func appendQuery(raw, query string) string {
	if strings.Contains(raw, "?") {
		return raw + "&" + query
	}
	return raw + "?" + query
}

var _ payment.Provider = (*StripeProvider)(nil)
