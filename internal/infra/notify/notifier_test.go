package notify

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func sample() domain.Notification {
	start := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	return domain.Notification{
		AppointmentID: 42,
		CustomerName:  "Ana <script>",
		CustomerEmail: "ana@example.com",
		StaffName:     "Rita",
		Services:      []string{"Cut", "Color"},
		StartTime:     start,
		EndTime:       start.Add(150 * time.Minute),
		TotalPrice:    decimal.NewFromInt(120),
		DepositAmount: decimal.NewFromInt(24),
		DepositPaid:   true,
	}
}

func TestEmailNotifierRendersConfirmation(t *testing.T) {
	sender := &recordingSender{}
	n := NewEmailNotifier(sender, time.UTC, "Studio Nine")

	require.NoError(t, n.SendConfirmation(context.Background(), sample()))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "Your appointment is booked", msg.Subject)
	assert.Contains(t, msg.Body, "Mon Jun 2, 2025 2:00 PM - 4:30 PM UTC")
	assert.Contains(t, msg.Body, "Cut, Color")
	assert.Contains(t, msg.Body, "24.00 (paid)")
	assert.Contains(t, msg.Body, "Reference #42")
	assert.NotContains(t, msg.Body, "Was:")
	assert.Contains(t, msg.HTML, "Ana &lt;script&gt;")
}

func TestEmailNotifierRescheduleShowsPreviousTime(t *testing.T) {
	sender := &recordingSender{}
	n := NewEmailNotifier(sender, time.UTC, "Studio Nine")

	msg := sample()
	prevStart := msg.StartTime.Add(-24 * time.Hour)
	prevEnd := prevStart.Add(150 * time.Minute)
	msg.PreviousStart, msg.PreviousEnd = &prevStart, &prevEnd

	require.NoError(t, n.SendReschedule(context.Background(), msg))
	assert.Contains(t, sender.sent[0].Body, "Was:      Sun Jun 1, 2025 2:00 PM")
}

func TestEmailNotifierKindsAndFailures(t *testing.T) {
	sender := &recordingSender{}
	n := NewEmailNotifier(sender, time.UTC, "")
	ctx := context.Background()

	require.NoError(t, n.SendCancellation(ctx, sample()))
	require.NoError(t, n.SendNoShow(ctx, sample()))
	assert.Equal(t, "Your appointment was cancelled", sender.sent[0].Subject)
	assert.Equal(t, "We missed you", sender.sent[1].Subject)

	noEmail := sample()
	noEmail.CustomerEmail = ""
	assert.Error(t, n.SendConfirmation(ctx, noEmail))

	sender.err = errors.New("quota exceeded")
	assert.ErrorContains(t, n.SendConfirmation(ctx, sample()), "quota exceeded")
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender(t *testing.T) {
	api := &fakeSES{}
	s := NewSESSender(api, SESConfig{FromEmail: "bookings@salon.test"}, logging.NewWithWriter(io.Discard, "error"))

	err := s.Send(context.Background(), EmailMessage{
		To:      "ana@example.com",
		Subject: "Hello",
		Body:    "text",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "Salon Bookings <bookings@salon.test>", aws.ToString(api.in.FromEmailAddress))
	assert.Equal(t, []string{"ana@example.com"}, api.in.Destination.ToAddresses)
	assert.Equal(t, "text", aws.ToString(api.in.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(api.in.Content.Simple.Body.Html.Data))

	api.err = errors.New("throttled")
	assert.Error(t, s.Send(context.Background(), EmailMessage{To: "a@example.com"}))
}

func TestSendersWithoutClients(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{}, nil))
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
	assert.NoError(t, NewStubEmailSender(logging.NewWithWriter(io.Discard, "error")).Send(context.Background(), EmailMessage{}))
}
