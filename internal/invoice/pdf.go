package invoice

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Name is the storage key of an order's invoice.
func Name(orderID uint) string {
	return fmt.Sprintf("invoice-%d.pdf", orderID)
}

// Lines renders one "title - qty x $price" row per ordered product.
func Lines(o *models.Order) []string {
	out := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, fmt.Sprintf("%s - %d x $%s", it.Product.Title, it.Quantity, it.Product.Price.StringFixed(2)))
	}
	return out
}

func TotalLine(o *models.Order) string {
	return "Total Price: $" + o.Total().StringFixed(2)
}

// Render produces the invoice document for o from its frozen snapshot lines.
func Render(o *models.Order) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Invoice %d", o.ID), true)
	pdf.SetCreator("storefront", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "BU", 26)
	pdf.CellFormat(0, 14, "Invoice", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Order - #%d", o.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, o.UserEmail, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "-----------------------", "", 1, "L", false, 0, "")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, line := range Lines(o) {
		pdf.CellFormat(0, 8, tr(line), "", 1, "L", false, 0, "")
	}

	pdf.CellFormat(0, 6, "---", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, TotalLine(o), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %d: %w", o.ID, err)
	}
	return buf.Bytes(), nil
}
