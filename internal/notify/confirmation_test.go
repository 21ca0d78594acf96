package notify

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/eventlink-tickets/internal/model"
	"github.com/iliyamo/eventlink-tickets/internal/ticket"
)

func confirmed() model.ConfirmedEvent {
	at := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	return model.ConfirmedEvent{
		Booking: model.Booking{
			Code:               "EVT-01HZ9K-7QH2XW0C",
			EventTitleSnapshot: "Afrobeats Night",
			Buyer:              model.Buyer{Name: "Ama <Mensah>", Email: "ama@example.com", Phone: "020"},
			TicketType:         "VIP",
			Quantity:           3,
			Currency:           "GHS",
			TotalAmount:        decimal.NewFromInt(195),
			Status:             model.StatusConfirmed,
			ConfirmedAt:        &at,
		},
		Event: model.Event{
			Title:          "Afrobeats Night",
			Date:           "2025-12-20",
			Time:           "20:00",
			Venue:          "Accra International Conference Centre",
			Location:       "Accra",
			OrganizerName:  "BolTech Events",
			OrganizerPhone: "+233 (24) 123-4567",
		},
		ConfirmedAt: at,
	}
}

func TestConfirmationMessage(t *testing.T) {
	doc := ticket.Document{FileName: "EventLink-Ticket-EVT-01HZ9K-7QH2XW0C.pdf", PDF: []byte("%PDF-1.3")}

	m, err := ConfirmationMessage(confirmed(), doc)
	require.NoError(t, err)

	assert.Equal(t, "ama@example.com", m.To)
	assert.Equal(t, "Booking Confirmed - Afrobeats Night", m.Subject)
	assert.Contains(t, m.Text, "Booking Code: EVT-01HZ9K-7QH2XW0C")
	assert.Contains(t, m.Text, "Total:       GHS 195.00")
	assert.Contains(t, m.Text, "https://wa.me/233241234567")
	assert.Contains(t, m.HTML, `href="https://wa.me/233241234567"`)
	assert.Contains(t, m.HTML, "Ama &lt;Mensah&gt;")
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "application/pdf", m.Attachments[0].ContentType)
	assert.Equal(t, doc.FileName, m.Attachments[0].Name)
}

func TestConfirmationMessage_WithoutPDFOrPhone(t *testing.T) {
	ev := confirmed()
	ev.Event.OrganizerPhone = ""
	ev.Event.Title = ""

	m, err := ConfirmationMessage(ev, ticket.Document{})
	require.NoError(t, err)
	assert.Empty(t, m.Attachments)
	assert.NotContains(t, m.Text, "wa.me")
	assert.Equal(t, "Booking Confirmed - Afrobeats Night", m.Subject)
}

func TestWhatsAppURL(t *testing.T) {
	assert.Equal(t, "https://wa.me/233200000000", WhatsAppURL("+233 20 000 0000"))
	assert.Equal(t, "", WhatsAppURL("n/a"))
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, LogSender{}.Send(context.Background(), Message{To: "a@b.co"}))
}

func TestSMTPSender_ComposesAttachments(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "", "", "tickets@eventlink.test")
	msg := s.compose(Message{
		To:          "ama@example.com",
		Subject:     "Hi",
		Text:        "body",
		HTML:        "<p>body</p>",
		Attachments: []Attachment{{Name: "t.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}},
	})
	assert.Equal(t, []string{"tickets@eventlink.test"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"ama@example.com"}, msg.GetHeader("To"))
}

func TestSMTPSender_HonoursCancelledContext(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "", "", "tickets@eventlink.test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "ama@example.com"}), context.Canceled)
}
