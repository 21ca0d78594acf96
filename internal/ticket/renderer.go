// Package ticket renders the ticket document handed to buyers once a
// booking is confirmed: a single A4 page with the event, the buyer, the
// booking code in clear text and a QR code of the same value.
package ticket

import (
	"bytes"
	_ "embed"
	"fmt"
	"image/png"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// fontFamily is a UTF-8 face so buyer names outside Latin-1 (Ɔ, ɛ) print
// as written.
const fontFamily = "DejaVu"

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
	//go:embed fonts/DejaVuSansCondensed-Oblique.ttf
	fontItalic []byte
)

// DefaultIssuer is printed in the page header when none is configured.
const DefaultIssuer = "EVENTLINK GHANA"

// qrPixels is the edge length of the encoded PNG.  It is printed at
// qrSize millimetres.
const (
	qrPixels = 320
	qrSize   = 60.0
)

// Document is a rendered ticket.  Lines holds the printed text in page
// order without the generation stamp, so two renders of the same booking
// have equal Lines.
type Document struct {
	Code        string
	FileName    string
	QRPayload   string
	QRImage     []byte
	Lines       []string
	PDF         []byte
	GeneratedAt time.Time
	Degraded    bool
}

// Encoder turns the booking code into a PNG image.
type Encoder func(content string) ([]byte, error)

// QREncoder encodes with medium error correction, which survives roughly
// 15% damage to the printed symbol.
func QREncoder(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, qrPixels)
}

// Renderer lays out ticket documents.  It holds no per-booking state and
// is safe for concurrent use.
type Renderer struct {
	issuer string
	encode Encoder
	now    func() time.Time
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithEncoder replaces the QR encoder.
func WithEncoder(e Encoder) Option { return func(r *Renderer) { r.encode = e } }

// WithClock replaces the clock used for the generation stamp.
func WithClock(now func() time.Time) Option { return func(r *Renderer) { r.now = now } }

// NewRenderer returns a renderer printing issuer in the header.
func NewRenderer(issuer string, opts ...Option) *Renderer {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	r := &Renderer{issuer: issuer, encode: QREncoder, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FileName is the download name of the ticket for code.
func FileName(code string) string {
	return fmt.Sprintf("EventLink-Ticket-%s.pdf", code)
}

// Render produces the document for b.  A failing QR encoder does not fail
// the render: the page is emitted with the code in clear text, a fallback
// notice, and Degraded set.  The returned error is only for PDF output
// failures.
func (r *Renderer) Render(b model.Booking, ev model.Event) (Document, error) {
	doc := Document{
		Code:        b.Code,
		FileName:    FileName(b.Code),
		GeneratedAt: r.now().UTC().Truncate(time.Second),
	}

	qr, err := r.encode(b.Code)
	if err == nil {
		_, err = png.DecodeConfig(bytes.NewReader(qr))
	}
	if err != nil {
		doc.Degraded = true
	} else {
		doc.QRImage = qr
		doc.QRPayload = b.Code
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetTitle("Ticket "+b.Code, true)
	pdf.SetAuthor(r.issuer, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddUTF8FontFromBytes(fontFamily, "", fontRegular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fontBold)
	pdf.AddUTF8FontFromBytes(fontFamily, "I", fontItalic)
	pdf.AddPage()

	p := &page{pdf: pdf}
	p.width, p.height = pdf.GetPageSize()
	r.layout(p, b, ev, doc)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("render ticket %s: %w", b.Code, err)
	}
	doc.PDF = buf.Bytes()
	doc.Lines = p.lines
	return doc, nil
}

func (r *Renderer) layout(p *page, b model.Booking, ev model.Event, doc Document) {
	pdf := p.pdf
	w, h := p.width, p.height

	pdf.SetFillColor(250, 250, 250)
	pdf.Rect(0, 0, w, h, "F")
	pdf.SetDrawColor(218, 165, 32)
	pdf.SetLineWidth(2)
	pdf.Rect(10, 10, w-20, h-20, "D")

	pdf.SetFillColor(20, 83, 45)
	pdf.Rect(10, 10, w-20, 40, "F")
	pdf.SetTextColor(255, 255, 255)
	p.centered(20, "B", 24, r.issuer)
	p.centered(33, "B", 16, "EVENT TICKET")

	if b.Status == model.StatusConfirmed {
		pdf.SetFillColor(34, 197, 94)
		pdf.RoundedRect(w-70, 55, 55, 15, 3, "1234", "F")
		pdf.SetXY(w-70, 55)
		pdf.SetFont(fontFamily, "B", 12)
		pdf.CellFormat(55, 15, "CONFIRMED", "", 0, "C", false, 0, "")
		p.lines = append(p.lines, "CONFIRMED")
	}

	title := ev.Title
	if title == "" {
		title = b.EventTitleSnapshot
	}
	pdf.SetTextColor(20, 83, 45)
	p.left(75, "B", 18, "Event Details")

	y := 85.0
	pdf.SetTextColor(60, 60, 60)
	for _, f := range [][2]string{
		{"Event:", title},
		{"Date:", displayDate(ev.Date)},
		{"Time:", ev.Time},
		{"Venue:", ev.Venue},
		{"Location:", ev.Location},
	} {
		p.field(y, f[0], f[1])
		y += 8
	}

	y += 6
	pdf.SetTextColor(20, 83, 45)
	p.left(y, "B", 18, "Ticket Holder")
	y += 10
	pdf.SetTextColor(60, 60, 60)
	for _, f := range [][2]string{
		{"Name:", b.Buyer.Name},
		{"Phone:", b.Buyer.Phone},
		{"Ticket Type:", b.TicketType},
		{"Quantity:", fmt.Sprintf("%d ticket(s)", b.Quantity)},
		{"Total Amount:", fmt.Sprintf("%s %s", b.Currency, b.TotalAmount.StringFixed(2))},
	} {
		p.field(y, f[0], f[1])
		y += 8
	}

	y += 4
	pdf.SetFillColor(218, 165, 32)
	pdf.Rect(15, y, w-30, 25, "F")
	pdf.SetTextColor(255, 255, 255)
	p.centered(y+3, "B", 10, "BOOKING CODE")
	p.centered(y+12, "B", 16, b.Code)
	y += 32

	if doc.Degraded {
		pdf.SetTextColor(150, 30, 30)
		p.centered(y+20, "B", 11, "Scannable code unavailable.")
		p.centered(y+28, "", 10, fmt.Sprintf("Present booking code %s at the venue entrance.", b.Code))
	} else {
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		name := "qr-" + b.Code
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(doc.QRImage))
		pdf.ImageOptions(name, (w-qrSize)/2, y, qrSize, qrSize, false, opts, 0, "")
		pdf.SetTextColor(100, 100, 100)
		p.centered(y+qrSize+2, "", 9, "Scan at the venue entrance")
	}
	y += qrSize + 12

	pdf.SetTextColor(60, 60, 60)
	p.left(y, "", 10, "For inquiries, contact:")
	contact := ev.OrganizerName
	if ev.OrganizerPhone != "" {
		contact = fmt.Sprintf("%s - WhatsApp: %s", ev.OrganizerName, ev.OrganizerPhone)
	}
	p.left(y+7, "B", 10, contact)

	pdf.SetDrawColor(218, 165, 32)
	pdf.SetLineWidth(0.5)
	pdf.Line(15, h-30, w-15, h-30)
	pdf.SetTextColor(100, 100, 100)
	p.centered(h-26, "I", 8, "This is your official event ticket. Please present it at the venue.")

	// Not recorded in lines: it is the only part that differs between renders.
	pdf.SetXY(10, h-19)
	pdf.SetFont(fontFamily, "I", 8)
	pdf.CellFormat(w-20, 5, "Generated: "+doc.GeneratedAt.Format("02 Jan 2006 15:04:05 MST"), "", 0, "C", false, 0, "")
}

func displayDate(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format("Monday, 2 January 2006")
}

type page struct {
	pdf    *fpdf.Fpdf
	width  float64
	height float64
	lines  []string
}

func (p *page) centered(y float64, style string, size float64, text string) {
	p.pdf.SetFont(fontFamily, style, size)
	p.pdf.SetXY(10, y)
	p.pdf.CellFormat(p.width-20, size*0.45, text, "", 0, "C", false, 0, "")
	p.lines = append(p.lines, text)
}

func (p *page) left(y float64, style string, size float64, text string) {
	p.pdf.SetFont(fontFamily, style, size)
	p.pdf.SetXY(20, y)
	p.pdf.CellFormat(p.width-40, size*0.45, text, "", 0, "L", false, 0, "")
	p.lines = append(p.lines, text)
}

func (p *page) field(y float64, label, value string) {
	p.pdf.SetXY(20, y)
	p.pdf.SetFont(fontFamily, "B", 11)
	p.pdf.CellFormat(32, 6, label, "", 0, "L", false, 0, "")
	p.pdf.SetFont(fontFamily, "", 11)
	p.pdf.CellFormat(p.width-72, 6, value, "", 0, "L", false, 0, "")
	p.lines = append(p.lines, label+" "+value)
}
