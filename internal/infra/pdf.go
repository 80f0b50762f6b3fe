package infra

// pdf.go renders the 80mm-wide thermal receipt for an invoice:
//   - shop name header
//   - invoice number and timestamp
//   - line table (product + size, quantity, line total)
//   - bold total and payment method
//   - the transfer QR for bank-transfer sales, else a lookup QR of the number

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"brewpos/internal/model"
	"brewpos/internal/vietqr"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ReceiptOptions are the optional parts of a receipt.
type ReceiptOptions struct {
	ShopName string
	// TransferPayload is printed as a QR when the sale was paid by transfer.
	TransferPayload string
}

// GenerateReceiptPDF writes the receipt of inv to storagePath/<number>.pdf
// and returns the file path.
func GenerateReceiptPDF(inv *model.Invoice, opts ReceiptOptions, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, inv.Number+".pdf")

	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	defer f.Close()

	if err := RenderReceiptPDF(f, inv, opts); err != nil {
		return "", err
	}
	return filePath, nil
}

// RenderReceiptPDF writes the receipt of inv to w.
func RenderReceiptPDF(w io.Writer, inv *model.Invoice, opts ReceiptOptions) error {
	shop := opts.ShopName
	if shop == "" {
		shop = "BrewPOS"
	}

	// height grows with the number of lines; fpdf has no roll paper size
	height := 120 + float64(len(inv.Lines))*5
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()

	// core Helvetica is cp1252 only, so text goes through vietqr.Fold
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, vietqr.Fold(shop), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, inv.Number, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, inv.CreatedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if inv.Status == model.InvoiceCancelled {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW, 5, "CANCELLED", "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Lines ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.55
	col2 := contentW * 0.13
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, l := range inv.Lines {
		name := fmt.Sprintf("%s (%s)", l.ProductName, l.Size)
		if r := []rune(name); len(r) > 26 {
			name = string(r[:25]) + "."
		}
		pdf.CellFormat(col1, 5, vietqr.Fold(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", l.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, FormatVND(l.LineTotal), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, FormatVND(inv.TotalAmount), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	method := "Cash"
	if inv.PaymentMethod == model.PaymentQR {
		method = "Bank transfer (" + inv.PaymentProfileName + ")"
	}
	pdf.CellFormat(contentW, 4, vietqr.Fold("Paid by: "+method), "", 1, "L", false, 0, "")

	// ── QR ───────────────────────────────────────────────────────────────────
	qrContent := inv.Number
	if inv.PaymentMethod == model.PaymentQR && opts.TransferPayload != "" {
		qrContent = opts.TransferPayload
	}
	png, err := QRPNG(qrContent, DefaultQRSize)
	if err != nil {
		return fmt.Errorf("pdf: qr: %w", err)
	}
	imgName := "qr-" + inv.Number
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	qrSide := 30.0
	pdf.Ln(3)
	pdf.ImageOptions(imgName, (pageW-qrSide)/2, pdf.GetY(), qrSide, qrSide, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetY(pdf.GetY() + qrSide + 2)

	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Thank you!", "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write: %w", err)
	}
	return nil
}

// FormatVND renders an amount as "50.000 đ" style text, ASCII only.
func FormatVND(amount decimal.Decimal) string {
	s := amount.Round(0).StringFixed(0)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg, s = true, s[1:]
	}
	var b bytes.Buffer
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + " VND"
	if neg {
		out = "-" + out
	}
	return out
}
