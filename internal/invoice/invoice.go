package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// QRPayload is what the front desk scans at check-in.
func QRPayload(b *domain.Booking) string {
	return fmt.Sprintf("%s|%s|%s|%s", b.Code, b.ID, b.Stay.CheckIn.Format(domain.DateLayout), b.Stay.CheckOut.Format(domain.DateLayout))
}

// Render produces a one-page PDF confirmation with the price breakdown and a
// QR code of the booking code.
func Render(b *domain.Booking, listing *domain.Listing, issuedAt time.Time) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil booking", domain.ErrInvalidInput)
	}
	qrPNG, err := qrcode.Encode(QRPayload(b), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking "+b.Code, false)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Booking confirmation")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	line := func(format string, args ...interface{}) {
		pdf.Cell(0, 8, fmt.Sprintf(format, args...))
		pdf.Ln(7)
	}
	line("Code: %s", b.Code)
	if listing != nil {
		line("Listing: %s", listing.Title)
		if listing.City != "" {
			line("City: %s", listing.City)
		}
	}
	line("Check-in: %s", b.Stay.CheckIn.Format(domain.DateLayout))
	line("Check-out: %s", b.Stay.CheckOut.Format(domain.DateLayout))
	line("Guests: %d adults, %d children", b.Occupancy.Adults, b.Occupancy.Children)
	line("Status: %s / payment %s", b.Status, b.PaymentStatus)
	pdf.Ln(4)

	p := b.Price
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Charges")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	rows := [][2]string{
		{fmt.Sprintf("%d nights x %s", p.TotalNights, p.NightlyRate.Format(p.Currency)), p.Subtotal.Format(p.Currency)},
		{"Cleaning fee", p.CleaningFee.Format(p.Currency)},
		{"Service fee", p.ServiceFee.Format(p.Currency)},
		{"Taxes", p.Taxes.Format(p.Currency)},
	}
	if p.Discount > 0 {
		rows = append(rows, [2]string{fmt.Sprintf("Discount (%s)", p.DiscountKind), "-" + p.Discount.Format(p.Currency)})
	}
	for _, row := range rows {
		pdf.CellFormat(120, 7, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, row[1], "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(120, 9, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 9, p.Total.Format(p.Currency), "T", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, "Refundable security deposit: "+p.SecurityDeposit.Format(p.Currency), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Issued "+issuedAt.UTC().Format(time.RFC1123), "", 1, "L", false, 0, "")

	imageOpts := gofpdf.ImageOptions{
		ImageType: "PNG",
	}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
