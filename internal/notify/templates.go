package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/momentworks/consultbook/internal/bookings"
	"github.com/momentworks/consultbook/internal/consultants"
)

// Email kinds, also used as the metrics label.
const (
	KindRequestedConsultant = "booking_requested_consultant"
	KindRequestedClient     = "booking_requested_client"
	KindConfirmedClient     = "booking_confirmed_client"
	KindConfirmedConsultant = "booking_confirmed_consultant"
)

type emailData struct {
	Brand          string
	SupportEmail   string
	ConsultantName string
	ClientName     string
	ClientEmail    string
	PreferredDates []string
	Message        string
	PaymentURL     string
	MeetURL        string
}

type emailTemplate struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

const htmlLayout = `<!DOCTYPE html>
<html><head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
{{template "content" .}}
<p style="color: #6b7280; font-size: 14px; border-top: 1px solid #e5e7eb; padding-top: 16px;">
Questions? <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a><br>{{.Brand}}</p>
</div></body></html>`

const textFooter = `
--
Questions? {{.SupportEmail}}
{{.Brand}}
`

func mustTemplate(subject, text, html string) emailTemplate {
	h := htmltemplate.Must(htmltemplate.New("layout").Parse(htmlLayout))
	htmltemplate.Must(h.New("content").Parse(html))
	return emailTemplate{
		subject: subject,
		text:    texttemplate.Must(texttemplate.New("text").Parse(text + textFooter)),
		html:    h,
	}
}

var (
	requestedConsultantTemplate = mustTemplate(
		"New booking request",
		`Hello {{.ConsultantName}},

You have a new booking request.

Client: {{.ClientName}} <{{.ClientEmail}}>
Preferred dates:
{{range .PreferredDates}}  - {{.}}
{{end}}
Details:
{{.Message}}

Payment link sent to the client:
{{.PaymentURL}}

The session is confirmed automatically once the client pays.
`,
		`<h1>New booking request</h1>
<p>Hello {{.ConsultantName}},</p>
<p>You have a new booking request.</p>
<p><strong>Client:</strong> {{.ClientName}} ({{.ClientEmail}})</p>
<p><strong>Preferred dates:</strong></p>
<ul>{{range .PreferredDates}}<li>{{.}}</li>{{end}}</ul>
<p><strong>Details:</strong></p>
<div style="white-space: pre-wrap;">{{.Message}}</div>
<p>Payment link sent to the client: <a href="{{.PaymentURL}}">{{.PaymentURL}}</a></p>
<p>The session is confirmed automatically once the client pays.</p>`,
	)

	requestedClientTemplate = mustTemplate(
		"We received your booking request",
		`Hello {{.ClientName}},

Thank you for your request. We have passed it on to the consultant.

Preferred dates:
{{range .PreferredDates}}  - {{.}}
{{end}}
You will receive a payment link shortly. Your session is confirmed once
payment completes, and we will then send the meeting URL.
`,
		`<h1>We received your booking request</h1>
<p>Hello {{.ClientName}},</p>
<p>Thank you for your request. We have passed it on to the consultant.</p>
<p><strong>Preferred dates:</strong></p>
<ul>{{range .PreferredDates}}<li>{{.}}</li>{{end}}</ul>
<p>You will receive a payment link shortly. Your session is confirmed once payment completes, and we will then send the meeting URL.</p>`,
	)

	confirmedClientTemplate = mustTemplate(
		"Your booking is confirmed",
		`Hello {{.ClientName}},

Payment is complete and your session with {{.ConsultantName}} is confirmed.
{{if .MeetURL}}
Meeting URL: {{.MeetURL}}
{{end}}
Please join a few minutes before the start time.
`,
		`<h1>Your booking is confirmed</h1>
<p>Hello {{.ClientName}},</p>
<p>Payment is complete and your session with {{.ConsultantName}} is confirmed.</p>
{{if .MeetURL}}<p><strong>Meeting URL:</strong> <a href="{{.MeetURL}}">{{.MeetURL}}</a></p>{{end}}
<p>Please join a few minutes before the start time.</p>`,
	)

	confirmedConsultantTemplate = mustTemplate(
		"Booking confirmed",
		`Hello {{.ConsultantName}},

Payment is complete and the following session is confirmed.

Client: {{.ClientName}} <{{.ClientEmail}}>
Details:
{{.Message}}

The client has received the meeting URL.
`,
		`<h1>Booking confirmed</h1>
<p>Hello {{.ConsultantName}},</p>
<p>Payment is complete and the following session is confirmed.</p>
<p><strong>Client:</strong> {{.ClientName}} ({{.ClientEmail}})</p>
<div style="white-space: pre-wrap;">{{.Message}}</div>
<p>The client has received the meeting URL.</p>`,
	)
)

func (t emailTemplate) render(to, toName string, data emailData) (EmailMessage, error) {
	var text, html bytes.Buffer
	if err := t.text.Execute(&text, data); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render text: %w", err)
	}
	if err := t.html.ExecuteTemplate(&html, "layout", data); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render html: %w", err)
	}
	return EmailMessage{
		To:      to,
		ToName:  toName,
		Subject: t.subject,
		Body:    strings.TrimSpace(text.String()),
		HTML:    html.String(),
	}, nil
}

func newEmailData(brand, support string, c *consultants.Consultant, b *bookings.Booking) emailData {
	return emailData{
		Brand:          brand,
		SupportEmail:   support,
		ConsultantName: c.Name,
		ClientName:     b.ClientName,
		ClientEmail:    b.ClientEmail,
		PreferredDates: b.PreferredDates,
		Message:        b.Message,
		MeetURL:        c.MeetURL,
	}
}
