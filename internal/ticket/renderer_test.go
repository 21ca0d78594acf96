package ticket

import (
	"bytes"
	"errors"
	"image"
	_ "image/png"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/eventlink-tickets/internal/model"
)

func confirmedBooking() model.Booking {
	confirmedAt := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	return model.Booking{
		ID:                 "6f1c5a0e-3f0b-4c55-9a55-2f6fd0a7c001",
		Code:               "EVT-01HZ9K-7QH2XW0C",
		EventID:            "afrobeats-night",
		EventTitleSnapshot: "Afrobeats Night",
		Buyer:              model.Buyer{Name: "Ama Mensah", Email: "ama@example.com", Phone: "+233 20 000 0000"},
		TicketType:         "VIP",
		Quantity:           3,
		UnitPrice:          decimal.NewFromInt(65),
		Currency:           "GHS",
		TotalAmount:        decimal.NewFromInt(195),
		Status:             model.StatusConfirmed,
		CreatedAt:          confirmedAt.Add(-time.Hour),
		ConfirmedAt:        &confirmedAt,
	}
}

func event() model.Event {
	return model.Event{
		ID:             "afrobeats-night",
		Title:          "Afrobeats Night",
		Date:           "2025-12-20",
		Time:           "20:00",
		Venue:          "Accra International Conference Centre",
		Location:       "Accra",
		Currency:       "GHS",
		OrganizerName:  "BolTech Events",
		OrganizerPhone: "+233 24 123 4567",
	}
}

func decodeQR(t *testing.T, img []byte) string {
	t.Helper()
	decoded, _, err := image.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	bmp, err := gozxing.NewBinaryBitmapFromImage(decoded)
	require.NoError(t, err)
	res, err := zxingqr.NewQRCodeReader().Decode(bmp, nil)
	require.NoError(t, err)
	return res.GetText()
}

func TestRenderConfirmedBooking(t *testing.T) {
	r := NewRenderer("")
	b := confirmedBooking()

	doc, err := r.Render(b, event())
	require.NoError(t, err)

	assert.False(t, doc.Degraded)
	assert.True(t, bytes.HasPrefix(doc.PDF, []byte("%PDF-")))
	assert.Equal(t, "EventLink-Ticket-EVT-01HZ9K-7QH2XW0C.pdf", doc.FileName)
	assert.Equal(t, b.Code, doc.QRPayload)
	assert.Equal(t, b.Code, decodeQR(t, doc.QRImage))

	assert.Contains(t, doc.Lines, DefaultIssuer)
	assert.Contains(t, doc.Lines, "CONFIRMED")
	assert.Contains(t, doc.Lines, "Event: Afrobeats Night")
	assert.Contains(t, doc.Lines, "Date: Saturday, 20 December 2025")
	assert.Contains(t, doc.Lines, "Time: 20:00")
	assert.Contains(t, doc.Lines, "Venue: Accra International Conference Centre")
	assert.Contains(t, doc.Lines, "Name: Ama Mensah")
	assert.Contains(t, doc.Lines, "Phone: +233 20 000 0000")
	assert.Contains(t, doc.Lines, "Ticket Type: VIP")
	assert.Contains(t, doc.Lines, "Quantity: 3 ticket(s)")
	assert.Contains(t, doc.Lines, "Total Amount: GHS 195.00")
	assert.Contains(t, doc.Lines, b.Code)
}

func TestRenderIsRepeatable(t *testing.T) {
	first := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	second := first.Add(3 * time.Hour)
	b := confirmedBooking()

	doc1, err := NewRenderer("", WithClock(func() time.Time { return first })).Render(b, event())
	require.NoError(t, err)
	doc2, err := NewRenderer("", WithClock(func() time.Time { return second })).Render(b, event())
	require.NoError(t, err)

	assert.Equal(t, doc1.Lines, doc2.Lines)
	assert.Equal(t, decodeQR(t, doc1.QRImage), decodeQR(t, doc2.QRImage))
	assert.NotEqual(t, doc1.GeneratedAt, doc2.GeneratedAt)
}

func TestRenderDegradesWhenEncoderFails(t *testing.T) {
	failing := func(string) ([]byte, error) { return nil, errors.New("encoder exploded") }
	b := confirmedBooking()

	doc, err := NewRenderer("", WithEncoder(failing)).Render(b, event())
	require.NoError(t, err)

	assert.True(t, doc.Degraded)
	assert.Empty(t, doc.QRImage)
	assert.Empty(t, doc.QRPayload)
	assert.True(t, bytes.HasPrefix(doc.PDF, []byte("%PDF-")))
	assert.Contains(t, doc.Lines, b.Code)
	assert.Contains(t, doc.Lines, "Scannable code unavailable.")
}

func TestRenderDegradesOnCorruptImage(t *testing.T) {
	garbage := func(string) ([]byte, error) { return []byte("not a png"), nil }

	doc, err := NewRenderer("", WithEncoder(garbage)).Render(confirmedBooking(), event())
	require.NoError(t, err)
	assert.True(t, doc.Degraded)
}

func TestRenderFallsBackToTitleSnapshot(t *testing.T) {
	ev := event()
	ev.Title = ""

	doc, err := NewRenderer("BOLTECH").Render(confirmedBooking(), ev)
	require.NoError(t, err)
	assert.Contains(t, doc.Lines, "BOLTECH")
	assert.Contains(t, doc.Lines, "Event: Afrobeats Night")
}

func TestRenderPendingHasNoBadge(t *testing.T) {
	b := confirmedBooking()
	b.Status = model.StatusPending

	doc, err := NewRenderer("").Render(b, event())
	require.NoError(t, err)
	assert.NotContains(t, doc.Lines, "CONFIRMED")
}

func TestRenderEmbedsUnicodeFont(t *testing.T) {
	b := confirmedBooking()
	b.Buyer.Name = "Kwadwo Ɔfori-Atta ɛ"

	doc, err := NewRenderer("").Render(b, event())
	require.NoError(t, err)

	assert.Contains(t, doc.Lines, "Name: Kwadwo Ɔfori-Atta ɛ")
	assert.True(t, bytes.Contains(doc.PDF, []byte("/FontFile2")))
	assert.True(t, bytes.Contains(doc.PDF, []byte("DejaVu")))
	assert.False(t, bytes.Contains(doc.PDF, []byte("/Helvetica")))
}
