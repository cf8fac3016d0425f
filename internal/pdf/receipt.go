package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/arman-dn/fleetops-contracts/internal/model"
)

// Generator renders payment receipts. Contract documents themselves are
// rendered elsewhere; this service only prints the payment events it owns.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(receipt model.PaymentReceipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	title := "Deposit Receipt"
	amount := receipt.Contract.SecurityDeposit
	if receipt.Kind == model.ReceiptFinalPayment {
		title = "Final Payment Receipt"
		amount = receipt.Contract.TotalAmount.Add(receipt.Contract.TotalExtraCharges)
	}

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Contract No. %d", receipt.Contract.ContractNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Rental period %s - %s",
		formatDate(receipt.Contract.StartDate), formatDate(receipt.Contract.EndDate)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 7, "Customer", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.MultiCell(0, 5, safeValue(receipt.Customer.FullName), "", "L", false)
	pdf.MultiCell(0, 5, fmt.Sprintf("Phone: %s", safeValue(receipt.Customer.Phone)), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 7, "Vehicle", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.MultiCell(0, 5, fmt.Sprintf("%s %s, plate %s",
		safeValue(receipt.Vehicle.Make), safeValue(receipt.Vehicle.Model), safeValue(receipt.Vehicle.Plate)), "", "L", false)
	pdf.Ln(4)

	headers := []string{"Description", "Method", "Date", "Amount"}
	widths := []float64{50, 28, 28, 20}
	drawTableRow(pdf, g.fontName, headers, widths, true)
	drawTableRow(pdf, g.fontName, []string{
		title,
		safeValue(receipt.Method),
		formatDate(receipt.PaidAt),
		amount.StringFixed(2),
	}, widths, false)

	pdf.Ln(3)
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total: %s %s", amount.StringFixed(2), receipt.Currency), "", 1, "R", false, 0, "")

	if receipt.Kind == model.ReceiptFinalPayment && receipt.Contract.OutstandingBalance.IsNegative() {
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 5, fmt.Sprintf("Credit due to customer: %s %s",
			receipt.Contract.OutstandingBalance.Abs().StringFixed(2), receipt.Currency), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(6)
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, "Received by: ______________________", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 9)
	for i, col := range cols {
		align := "L"
		if i == len(cols)-1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}
