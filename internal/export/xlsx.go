package export

import (
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// RenderXLSX writes the table to a single sheet with a bold header row.
func RenderXLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Sheet1"
	if name := sheetName(t.Title); name != "" {
		if err := f.SetSheetName(sheet, name); err != nil {
			return nil, errors.Wrap(err, "rename sheet")
		}
		sheet = name
	}

	header := make([]any, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col.Title
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, errors.Wrap(err, "column name")
		}
		if err := f.SetColWidth(sheet, colName, colName, float64(max(col.Width, 8))); err != nil {
			return nil, errors.Wrap(err, "set column width")
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "header style")
	}
	if len(t.Columns) > 0 {
		last, _ := excelize.ColumnNumberToName(len(t.Columns))
		if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
			return nil, errors.Wrap(err, "apply header style")
		}
	}

	for r, rec := range t.Rows {
		values := make([]any, len(t.Columns))
		for i, col := range t.Columns {
			values[i] = rec.String(col.Key)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, errors.Wrap(err, "cell name")
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, errors.Wrapf(err, "write row %d", r+1)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "render xlsx")
	}
	return buf.Bytes(), nil
}

// sheetName trims title to the 31 characters a sheet name may hold and
// drops characters Excel rejects.
func sheetName(title string) string {
	out := make([]rune, 0, len(title))
	for _, r := range title {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
		if len(out) == 31 {
			break
		}
	}
	return string(out)
}
