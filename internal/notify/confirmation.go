package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"unicode"

	"github.com/iliyamo/eventlink-tickets/internal/model"
	"github.com/iliyamo/eventlink-tickets/internal/ticket"
)

type confirmationData struct {
	Name          string
	Code          string
	EventTitle    string
	Date          string
	Time          string
	Venue         string
	Location      string
	TicketType    string
	Quantity      int
	Total         string
	OrganizerName string
	WhatsAppURL   string
}

const confirmationHTML = `<!DOCTYPE html>
<html><body style="font-family: Helvetica, Arial, sans-serif; color: #333;">
<div style="background: #14532d; color: #fff; padding: 24px; text-align: center;">
  <h1>Booking Confirmed!</h1>
  <p>Your ticket for {{.EventTitle}}</p>
</div>
<div style="padding: 24px;">
  <p>Dear {{.Name}},</p>
  <p>Your booking has been confirmed. Your ticket is attached to this email.</p>
  <p style="background: #daa520; color: #fff; padding: 12px; text-align: center; font-size: 18px;"><strong>Booking Code: {{.Code}}</strong></p>
  <h3 style="color: #14532d;">Event Details</h3>
  <p><strong>Event:</strong> {{.EventTitle}}<br>
  <strong>Date:</strong> {{.Date}}<br>
  <strong>Time:</strong> {{.Time}}<br>
  <strong>Venue:</strong> {{.Venue}}<br>
  <strong>Location:</strong> {{.Location}}</p>
  <h3 style="color: #14532d;">Ticket Information</h3>
  <p><strong>Ticket Type:</strong> {{.TicketType}}<br>
  <strong>Quantity:</strong> {{.Quantity}}<br>
  <strong>Total:</strong> {{.Total}}</p>
  <ul>
    <li>Save the attached ticket PDF.</li>
    <li>Present it, printed or on your phone, at the venue entrance.</li>
    <li>Your booking code is <strong>{{.Code}}</strong>.</li>
  </ul>
  {{if .WhatsAppURL}}<p>Questions? Contact {{.OrganizerName}} on WhatsApp:</p>
  <p><a href="{{.WhatsAppURL}}">Contact Organizer</a></p>{{end}}
  <p>Thank you for booking with EventLink Ghana!</p>
</div>
</body></html>
`

const confirmationText = `Dear {{.Name}},

Your booking has been confirmed. Your ticket is attached to this email.

Booking Code: {{.Code}}

Event:    {{.EventTitle}}
Date:     {{.Date}}
Time:     {{.Time}}
Venue:    {{.Venue}}
Location: {{.Location}}

Ticket Type: {{.TicketType}}
Quantity:    {{.Quantity}}
Total:       {{.Total}}

Present your ticket at the venue entrance.
{{if .WhatsAppURL}}
Questions? Contact {{.OrganizerName}} on WhatsApp: {{.WhatsAppURL}}
{{end}}
Thank you for booking with EventLink Ghana!
`

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("confirmation.html").Parse(confirmationHTML))
	textTmpl = texttemplate.Must(texttemplate.New("confirmation.txt").Parse(confirmationText))
)

// ConfirmationMessage builds the e-mail sent to the buyer once a booking
// is confirmed.  doc is attached when it carries a PDF.
func ConfirmationMessage(ev model.ConfirmedEvent, doc ticket.Document) (Message, error) {
	b, e := ev.Booking, ev.Event
	title := e.Title
	if title == "" {
		title = b.EventTitleSnapshot
	}
	data := confirmationData{
		Name:          b.Buyer.Name,
		Code:          b.Code,
		EventTitle:    title,
		Date:          e.Date,
		Time:          e.Time,
		Venue:         e.Venue,
		Location:      e.Location,
		TicketType:    b.TicketType,
		Quantity:      b.Quantity,
		Total:         fmt.Sprintf("%s %s", b.Currency, b.TotalAmount.StringFixed(2)),
		OrganizerName: e.OrganizerName,
		WhatsAppURL:   WhatsAppURL(e.OrganizerPhone),
	}

	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render confirmation html: %w", err)
	}
	if err := textTmpl.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render confirmation text: %w", err)
	}

	m := Message{
		To:      b.Buyer.Email,
		Subject: "Booking Confirmed - " + title,
		HTML:    html.String(),
		Text:    text.String(),
	}
	if len(doc.PDF) > 0 {
		m.Attachments = []Attachment{{Name: doc.FileName, ContentType: "application/pdf", Data: doc.PDF}}
	}
	return m, nil
}

// WhatsAppURL returns the click-to-chat link for phone, or "" when phone
// has no digits.
func WhatsAppURL(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return ""
	}
	return "https://wa.me/" + digits
}
