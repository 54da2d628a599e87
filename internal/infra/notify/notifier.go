package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"

	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
)

const textLayout = `Hi {{.Name}},

{{.Intro}}

When:     {{.When}}
{{- if .Previous}}
Was:      {{.Previous}}
{{- end}}
With:     {{.Staff}}
Services: {{.Services}}
Total:    {{.Total}}
Deposit:  {{.Deposit}}{{if .DepositPaid}} (paid){{end}}

Reference #{{.ID}}
{{.Salon}}
`

const htmlLayout = `<p>Hi {{.Name}},</p>
<p>{{.Intro}}</p>
<table>
<tr><td>When</td><td>{{.When}}</td></tr>
{{- if .Previous}}
<tr><td>Was</td><td>{{.Previous}}</td></tr>
{{- end}}
<tr><td>With</td><td>{{.Staff}}</td></tr>
<tr><td>Services</td><td>{{.Services}}</td></tr>
<tr><td>Total</td><td>{{.Total}}</td></tr>
<tr><td>Deposit</td><td>{{.Deposit}}{{if .DepositPaid}} (paid){{end}}</td></tr>
</table>
<p>Reference #{{.ID}}<br>{{.Salon}}</p>
`

var (
	textTmpl = template.Must(template.New("text").Parse(textLayout))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlLayout))
)

type view struct {
	ID          uint
	Name        string
	Intro       string
	When        string
	Previous    string
	Staff       string
	Services    string
	Total       string
	Deposit     string
	DepositPaid bool
	Salon       string
}

// EmailNotifier renders appointment notifications and hands them to an
// EmailSender.
type EmailNotifier struct {
	sender EmailSender
	loc    *time.Location
	salon  string
}

func NewEmailNotifier(sender EmailSender, loc *time.Location, salonName string) *EmailNotifier {
	if loc == nil {
		loc = time.UTC
	}
	return &EmailNotifier{sender: sender, loc: loc, salon: salonName}
}

func (n *EmailNotifier) SendConfirmation(ctx context.Context, msg domain.Notification) error {
	return n.send(ctx, msg, "Your appointment is booked",
		"Your appointment is booked. We look forward to seeing you.")
}

func (n *EmailNotifier) SendCancellation(ctx context.Context, msg domain.Notification) error {
	return n.send(ctx, msg, "Your appointment was cancelled",
		"Your appointment has been cancelled.")
}

func (n *EmailNotifier) SendReschedule(ctx context.Context, msg domain.Notification) error {
	return n.send(ctx, msg, "Your appointment was moved",
		"Your appointment has a new time.")
}

func (n *EmailNotifier) SendNoShow(ctx context.Context, msg domain.Notification) error {
	return n.send(ctx, msg, "We missed you",
		"We missed you at your appointment. Reply to this email to book again.")
}

func (n *EmailNotifier) send(ctx context.Context, msg domain.Notification, subject, intro string) error {
	if msg.CustomerEmail == "" {
		return fmt.Errorf("notify: appointment %d has no recipient", msg.AppointmentID)
	}

	v := view{
		ID:          msg.AppointmentID,
		Name:        msg.CustomerName,
		Intro:       intro,
		When:        n.span(msg.StartTime, msg.EndTime),
		Staff:       msg.StaffName,
		Services:    strings.Join(msg.Services, ", "),
		Total:       msg.TotalPrice.StringFixed(2),
		Deposit:     msg.DepositAmount.StringFixed(2),
		DepositPaid: msg.DepositPaid,
		Salon:       n.salon,
	}
	if v.Name == "" {
		v.Name = "there"
	}
	if msg.PreviousStart != nil && msg.PreviousEnd != nil {
		v.Previous = n.span(*msg.PreviousStart, *msg.PreviousEnd)
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, v); err != nil {
		return fmt.Errorf("notify: render text: %w", err)
	}
	if err := htmlTmpl.Execute(&html, v); err != nil {
		return fmt.Errorf("notify: render html: %w", err)
	}

	return n.sender.Send(ctx, EmailMessage{
		To:      msg.CustomerEmail,
		ToName:  msg.CustomerName,
		Subject: subject,
		Body:    text.String(),
		HTML:    html.String(),
	})
}

func (n *EmailNotifier) span(start, end time.Time) string {
	start, end = start.In(n.loc), end.In(n.loc)
	return start.Format("Mon Jan 2, 2006 3:04 PM") + " - " + end.Format("3:04 PM MST")
}

var _ domain.Notifier = (*EmailNotifier)(nil)
