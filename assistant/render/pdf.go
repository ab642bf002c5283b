// Package render draws the filled application form.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

const (
	pageMargin = 20.0
	lineHeight = 9.0
)

type Option func(*PDFRenderer)

// WithCompression toggles page stream compression. Tests turn it off to
// inspect the drawn text.
func WithCompression(on bool) Option {
	return func(r *PDFRenderer) { r.compress = on }
}

func WithAuthor(author string) Option {
	return func(r *PDFRenderer) {
		if strings.TrimSpace(author) != "" {
			r.author = strings.TrimSpace(author)
		}
	}
}

// PDFRenderer lays out a single A4 page with the core Helvetica font.
type PDFRenderer struct {
	compress bool
	author   string
}

var _ contractx.ApplicationRenderer = (*PDFRenderer)(nil)

func NewPDFRenderer(opts ...Option) *PDFRenderer {
	r := &PDFRenderer{compress: true, author: "Gram Sahayak"}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *PDFRenderer) Render(ctx context.Context, app contractx.Application) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(app.SchemeName) == "" {
		return nil, fmt.Errorf("%w: scheme name is required", contractx.ErrRender)
	}
	date := app.Date
	if date.IsZero() {
		date = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetCreationDate(date)
	pdf.SetAuthor(r.author, true)
	pdf.SetTitle("APPLICATION: "+app.SchemeName, true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(pdfSafe(s)) }

	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, lineHeight+2, text("APPLICATION: "+app.SchemeName), "", 1, "L", false, 0, "")

	y := pdf.GetY() + 2
	pdf.SetLineWidth(0.4)
	pdf.Line(pageMargin, y, pageW-pageMargin, y)
	pdf.SetY(y + 6)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, lineHeight, text("Date: "+date.Format("02-01-2006")), "", 1, "L", false, 0, "")
	pdf.Ln(lineHeight / 2)

	rows := []struct{ label, value string }{
		{"Name", app.Name},
		{"Land Area", app.Area},
		{"Loan Amount", app.Amount},
		{"Scheme", app.SchemeName},
	}
	for _, row := range rows {
		pdf.CellFormat(0, lineHeight, text(row.label+": "+row.value), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrRender, err)
	}
	return buf.Bytes(), nil
}

// pdfSafe swaps glyphs the core fonts cannot draw.
func pdfSafe(s string) string {
	return strings.ReplaceAll(s, "₹", "Rs.")
}
