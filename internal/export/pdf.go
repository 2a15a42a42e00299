package export

import (
	"bytes"

	"github.com/phpdave11/gofpdf"
	"github.com/pkg/errors"

	"github.com/feridsherif/crms-frontend/internal/utils"
)

// RenderPDF lays the table out on landscape A4 pages, repeating the header.
func RenderPDF(t Table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(t.Title, false)
	pdf.SetAutoPageBreak(false, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	widths := columnWidths(t, pdf)
	const rowH = 7.0
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range t.Columns {
			pdf.CellFormat(widths[i], rowH, tr(col.Title), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(t.Title))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Generated "+utils.FormatDateTime(t.GeneratedAt))
	pdf.Ln(8)
	header()

	for _, row := range t.Rows {
		if pdf.GetY()+rowH > pageH-bottom-12 {
			pdf.AddPage()
			header()
		}
		for i, col := range t.Columns {
			pdf.CellFormat(widths[i], rowH, tr(fit(pdf, row.String(col.Key), widths[i])), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(t.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, rowH, "No records.")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}

// columnWidths scales the declared widths to the printable page width.
func columnWidths(t Table, pdf *gofpdf.Fpdf) []float64 {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	avail := pageW - left - right

	total := 0
	for _, c := range t.Columns {
		total += max(c.Width, 1)
	}
	out := make([]float64, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = avail * float64(max(c.Width, 1)) / float64(total)
	}
	return out
}

// fit trims s so it renders within w at the current font.
func fit(pdf *gofpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w-2 {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > w-2 {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
