// Package pdf строит PDF-отчёты по счетам с помощью go-pdf/fpdf.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// ErrUnknownTemplate возвращается для незарегистрированного шаблона.
var ErrUnknownTemplate = errors.New("unknown report template")

// Layout рисует содержимое документа.
type Layout func(doc *fpdf.Fpdf, params map[string]any, rows []domain.InvoiceDetail)

// Renderer реализует domain.ReportRenderer.
type Renderer struct {
	layouts map[string]Layout
}

// NewRenderer возвращает генератор со встроенным шаблоном "invoice".
func NewRenderer() *Renderer {
	return &Renderer{
		layouts: map[string]Layout{
			"invoice": invoiceLayout,
		},
	}
}

// Register добавляет или заменяет шаблон.
func (r *Renderer) Register(templateRef string, layout Layout) {
	r.layouts[templateRef] = layout
}

// Templates возвращает имена зарегистрированных шаблонов.
func (r *Renderer) Templates() []string {
	names := make([]string, 0, len(r.layouts))
	for name := range r.layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Renderer) Render(ctx context.Context, templateRef string, params map[string]any, rows []domain.InvoiceDetail) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layout, ok := r.layouts[templateRef]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateRef)
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(templateRef, true)
	doc.SetCreator("rms", true)
	doc.AddPage()
	layout(doc, params, rows)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	colDish   = 90.0
	colQty    = 20.0
	colPrice  = 35.0
	colAmount = 35.0
	rowHeight = 8.0
)

func invoiceLayout(doc *fpdf.Fpdf, params map[string]any, rows []domain.InvoiceDetail) {
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, "Invoice", "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 12)
	client, _ := params["txt_client"].(string)
	doc.CellFormat(0, rowHeight, tr("Client: "+client), "", 1, "L", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "B", 11)
	doc.SetFillColor(230, 230, 230)
	doc.CellFormat(colDish, rowHeight, "Dish", "1", 0, "L", true, 0, "")
	doc.CellFormat(colQty, rowHeight, "Qty", "1", 0, "R", true, 0, "")
	doc.CellFormat(colPrice, rowHeight, "Price", "1", 0, "R", true, 0, "")
	doc.CellFormat(colAmount, rowHeight, "Amount", "1", 1, "R", true, 0, "")

	doc.SetFont("Helvetica", "", 11)
	total := decimal.Zero
	for _, row := range rows {
		amount := row.Amount
		if amount.IsZero() {
			amount = row.LineAmount()
		}
		total = total.Add(amount)

		doc.CellFormat(colDish, rowHeight, tr(row.Dish.Name), "1", 0, "L", false, 0, "")
		doc.CellFormat(colQty, rowHeight, strconv.Itoa(row.Quantity), "1", 0, "R", false, 0, "")
		doc.CellFormat(colPrice, rowHeight, row.Dish.Price.StringFixed(2), "1", 0, "R", false, 0, "")
		doc.CellFormat(colAmount, rowHeight, amount.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(colDish+colQty+colPrice, rowHeight, "Total", "1", 0, "R", false, 0, "")
	doc.CellFormat(colAmount, rowHeight, total.StringFixed(2), "1", 1, "R", false, 0, "")
}

var _ domain.ReportRenderer = (*Renderer)(nil)
