package export

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
)

func sampleTable(n int) Table {
	rows := make([]domain.Record, n)
	for i := range rows {
		rows[i] = domain.Record{"id": strconv.Itoa(i + 1), "name": "Branch " + strconv.Itoa(i+1), "address": "Street", "phone": "555"}
	}
	return Table{
		Title:       "Branches",
		Columns:     entities.MustLookup(entities.Branches).Columns,
		Rows:        rows,
		GeneratedAt: time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, PDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)
	assert.Equal(t, "roles-20260102-1504.xlsx", f.Filename("roles", time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)))

	_, err = ParseFormat("csv")
	assert.True(t, domain.IsValidation(err))
}

func TestRenderPDF(t *testing.T) {
	out, err := Render(PDF, sampleTable(120))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	out, err = Render(PDF, sampleTable(0))
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderXLSX(t *testing.T) {
	out, err := Render(XLSX, sampleTable(3))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Branches")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Name", "Address", "Phone"}, rows[0])
	assert.Equal(t, "Branch 3", rows[3][0])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "RolesPermissions", sheetName("Roles/Permissions"))
	assert.Len(t, []rune(sheetName("a very long title that exceeds the excel limit")), 31)
}

type pagedLister struct {
	total int
	calls []domain.ListQuery
}

func (p *pagedLister) List(_ context.Context, _ string, q domain.ListQuery) (domain.ListResult, error) {
	p.calls = append(p.calls, q)
	items := []domain.Record{}
	for i := q.PageIndex * q.PageSize; i < p.total && i < (q.PageIndex+1)*q.PageSize; i++ {
		items = append(items, domain.Record{"id": strconv.Itoa(i)})
	}
	return domain.ListResult{Items: items, TotalCount: p.total, Page: q.Page()}, nil
}

func TestCollectWalksPages(t *testing.T) {
	lister := &pagedLister{total: 250}
	rows, err := Collect(context.Background(), lister, "customers", domain.ListQuery{PageIndex: 4, PageSize: 10, SortField: "name"}, 1000)
	require.NoError(t, err)
	assert.Len(t, rows, 250)
	require.Len(t, lister.calls, 3)
	assert.Equal(t, 0, lister.calls[0].PageIndex)
	assert.Equal(t, "name", lister.calls[2].SortField)
}

func TestCollectStopsAtMaxRows(t *testing.T) {
	lister := &pagedLister{total: 250}
	rows, err := Collect(context.Background(), lister, "customers", domain.ListQuery{PageSize: 10}, 150)
	require.NoError(t, err)
	assert.Len(t, rows, 150)
	assert.Len(t, lister.calls, 2)
}
