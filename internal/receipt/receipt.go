// Package receipt renders printable order receipts.
package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"farmcart-backend/internal/domain"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// PDF renders o as a single-page A4 receipt with a QR code of the tracking code.
// The core fonts only cover Latin-1, so the English half of each text is used.
func PDF(o *domain.Order) ([]byte, error) {
	qrPNG, err := qrcode.Encode(o.TrackingCode, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt "+o.TrackingCode, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "FarmCart order receipt", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	lines := []string{
		"Tracking code: " + o.TrackingCode,
		"Order: " + o.ID,
		"Placed: " + o.CreatedAt.Format("2006-01-02 15:04 MST"),
		"Customer: " + latin(o.Customer.Name) + "  " + o.Customer.Phone,
		"Deliver to: " + latin(o.DeliveryAddress),
		"Status: " + string(o.Status) + "   Payment: " + string(o.PaymentStatus) + " (" + o.PaymentMethod + ")",
	}
	for _, l := range lines {
		pdf.CellFormat(120, 7, l, "", 1, "L", false, 0, "")
	}

	opts := gofpdf.ImageOptions{ImageType: "png"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, opts, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, it := range o.Items {
		pdf.CellFormat(90, 7, latin(it.Name.EN), "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d %s", it.Quantity, it.Unit), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, it.Price.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, it.LineTotal().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	totals := []struct {
		label string
		value string
	}{
		{"Subtotal", o.Subtotal.StringFixed(2)},
		{"Discount", "-" + o.Discount.StringFixed(2)},
		{"Delivery", o.DeliveryFee.StringFixed(2)},
		{"Total (" + o.Currency + ")", o.Total.StringFixed(2)},
	}
	for i, t := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Arial", "B", 12)
		}
		pdf.CellFormat(150, 7, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, t.value, "", 1, "R", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "Estimated delivery: "+o.EstimatedDelivery.Format("2006-01-02 15:04 MST"), "T", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// latin drops runes the core PDF fonts cannot draw.
func latin(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xff {
			return -1
		}
		return r
	}, s)
}
