// Package export renders entity lists as PDF or XLSX documents.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
)

type Format string

const (
	PDF  Format = "pdf"
	XLSX Format = "xlsx"
)

// ParseFormat accepts pdf or xlsx, case-insensitively. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return XLSX, nil
	case "pdf":
		return PDF, nil
	default:
		return "", domain.ValidationError{Field: "format", Msg: "must be pdf or xlsx"}
	}
}

func (f Format) ContentType() string {
	if f == PDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename builds an attachment name like roles-20260102-1504.xlsx.
func (f Format) Filename(entity string, at time.Time) string {
	return fmt.Sprintf("%s-%s.%s", entity, at.Format("20060102-1504"), f)
}

// Table is what gets rendered.
type Table struct {
	Title       string
	Columns     []entities.Column
	Rows        []domain.Record
	GeneratedAt time.Time
}

// Render dispatches on f.
func Render(f Format, t Table) ([]byte, error) {
	if f == PDF {
		return RenderPDF(t)
	}
	return RenderXLSX(t)
}

// Lister pages through an entity list.
type Lister interface {
	List(ctx context.Context, entity string, q domain.ListQuery) (domain.ListResult, error)
}

const collectPageSize = 100

// Collect walks pages of q, starting at the first, until the total is reached,
// a page comes back empty or maxRows rows are held.
func Collect(ctx context.Context, lister Lister, entity string, q domain.ListQuery, maxRows int) ([]domain.Record, error) {
	q.PageIndex = 0
	q.PageSize = collectPageSize
	if maxRows > 0 && maxRows < q.PageSize {
		q.PageSize = maxRows
	}
	rows := []domain.Record{}
	for {
		res, err := lister.List(ctx, entity, q)
		if err != nil {
			return nil, err
		}
		rows = append(rows, res.Items...)
		if maxRows > 0 && len(rows) >= maxRows {
			return rows[:maxRows], nil
		}
		if len(res.Items) == 0 || len(rows) >= res.TotalCount {
			return rows, nil
		}
		q.PageIndex++
	}
}
