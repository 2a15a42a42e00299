package listsync

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

// fakeLister serves pages of a fixed id set. Queries whose search text is in
// gates block until the gate is closed.
type fakeLister struct {
	mu    sync.Mutex
	ids   []int
	calls int32
	gates map[string]chan struct{}
	fail  error
}

func (f *fakeLister) List(ctx context.Context, _ string, q domain.ListQuery) (domain.ListResult, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	gate := f.gates[q.SearchText]
	fail := f.fail
	ids := append([]int(nil), f.ids...)
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.ListResult{}, ctx.Err()
		}
	}
	if fail != nil {
		return domain.ListResult{}, fail
	}
	start := q.PageIndex * q.PageSize
	items := []domain.Record{}
	for i := start; i < len(ids) && i < start+q.PageSize; i++ {
		items = append(items, domain.Record{"id": strconv.Itoa(ids[i]), "name": q.SearchText})
	}
	return domain.ListResult{Items: items, TotalCount: len(ids), Page: q.Page()}, nil
}

func (f *fakeLister) count() int { return int(atomic.LoadInt32(&f.calls)) }

func (f *fakeLister) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func idRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func TestLoadExposesRowsAndTotal(t *testing.T) {
	lister := &fakeLister{ids: idRange(25)}
	s := New("permissions", lister, domain.ListQuery{PageSize: 10, SortField: "name"})
	assert.Equal(t, Idle, s.State())

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 25, s.CurrentTotal())
	assert.Len(t, s.CurrentRows(), 10)
	assert.Equal(t, Ready, s.State())
	assert.False(t, s.IsFetching())
	assert.Equal(t, 3, s.PageCount())
	assert.Equal(t, 1, s.CurrentPage())
}

func TestEmptyBackend(t *testing.T) {
	s := New("branches", &fakeLister{}, domain.ListQuery{PageSize: 10})
	require.NoError(t, s.Load(context.Background()))
	assert.Empty(t, s.CurrentRows())
	assert.Equal(t, 0, s.CurrentTotal())
	assert.False(t, s.IsFetching())
}

func TestIdenticalKeysFetchOnce(t *testing.T) {
	lister := &fakeLister{ids: idRange(30)}
	s := New("customers", lister, domain.ListQuery{PageSize: 10})
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.SetQuery(ctx, QueryPatch{PageIndex: intPtr(1)}))
	require.NoError(t, s.SetQuery(ctx, QueryPatch{PageIndex: intPtr(0)}))
	require.NoError(t, s.SetQuery(ctx, QueryPatch{PageIndex: intPtr(1)}))
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, 2, lister.count())
	assert.Equal(t, "11", s.CurrentRows()[0].ID())
}

func TestConcurrentIdenticalFetchesShareOneCall(t *testing.T) {
	gate := make(chan struct{})
	lister := &fakeLister{ids: idRange(5), gates: map[string]chan struct{}{"": gate}}
	s := New("roles", lister, domain.ListQuery{PageSize: 10})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Load(context.Background())
		}(i)
	}
	require.Eventually(t, s.IsFetching, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, lister.count())
	assert.Equal(t, 5, s.CurrentTotal())
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrSuperseded)
	}
	assert.Equal(t, 1, succeeded)
}

func TestCancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	gate := make(chan struct{})
	lister := &fakeLister{ids: idRange(5), gates: map[string]chan struct{}{"": gate}}
	s := New("roles", lister, domain.ListQuery{PageSize: 10})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() { firstErr <- s.Load(first) }()
	require.Eventually(t, s.IsFetching, time.Second, time.Millisecond)

	secondErr := make(chan error, 1)
	go func() { secondErr <- s.Load(context.Background()) }()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.gen == 2
	}, time.Second, time.Millisecond)

	cancel()
	assert.Error(t, <-firstErr)

	close(gate)
	require.NoError(t, <-secondErr)
	assert.Equal(t, 1, lister.count())
	assert.Equal(t, 5, s.CurrentTotal())
	assert.Equal(t, Ready, s.State())
}

func TestSearchResetsPageIndex(t *testing.T) {
	for _, start := range []int{0, 1, 4, 9} {
		q := QueryPatch{SearchText: strPtr("acme")}.Apply(domain.ListQuery{PageIndex: start, PageSize: 10})
		assert.Equal(t, 0, q.PageIndex, "start page %d", start)
		assert.Equal(t, "acme", q.SearchText)
	}

	q := QueryPatch{SearchText: strPtr("acme"), PageIndex: intPtr(3)}.Apply(domain.ListQuery{PageSize: 10})
	assert.Equal(t, 0, q.PageIndex)

	q = QueryPatch{SearchText: strPtr("same"), PageIndex: intPtr(3)}.Apply(domain.ListQuery{PageSize: 10, SearchText: "same"})
	assert.Equal(t, 3, q.PageIndex)

	lister := &fakeLister{ids: idRange(50)}
	s := New("users", lister, domain.ListQuery{PageSize: 10})
	ctx := context.Background()
	require.NoError(t, s.SetQuery(ctx, QueryPatch{PageIndex: intPtr(3)}))
	require.NoError(t, s.SetQuery(ctx, QueryPatch{SearchText: strPtr("ann")}))
	assert.Equal(t, 0, s.Query().PageIndex)
	assert.Equal(t, "1", s.CurrentRows()[0].ID())
}

func TestQueryPatchFiltersAndSort(t *testing.T) {
	q := QueryPatch{
		SortField:      strPtr("email"),
		SortDescending: boolPtr(true),
		PageSize:       intPtr(25),
		Filters:        map[string]string{"status": "active", "roleId": ""},
	}.Apply(domain.ListQuery{PageSize: 10})
	assert.Equal(t, "email", q.SortField)
	assert.True(t, q.SortDescending)
	assert.Equal(t, 25, q.PageSize)
	assert.Equal(t, map[string]string{"status": "active"}, q.Filters)
}

func TestSetQueryRejectsInvalid(t *testing.T) {
	lister := &fakeLister{ids: idRange(3)}
	s := New("users", lister, domain.ListQuery{PageSize: 10})
	err := s.SetQuery(context.Background(), QueryPatch{PageSize: intPtr(0)})
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 10, s.Query().PageSize)
	assert.Equal(t, 0, lister.count())
}

func TestSupersededResponseIsDiscarded(t *testing.T) {
	gateA := make(chan struct{})
	lister := &fakeLister{ids: idRange(3), gates: map[string]chan struct{}{"a": gateA}}
	s := New("branches", lister, domain.ListQuery{PageSize: 10})
	ctx := context.Background()

	doneA := make(chan error, 1)
	go func() { doneA <- s.SetQuery(ctx, QueryPatch{SearchText: strPtr("a")}) }()
	require.Eventually(t, func() bool { return lister.count() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.SetQuery(ctx, QueryPatch{SearchText: strPtr("b")}))
	close(gateA)
	assert.ErrorIs(t, <-doneA, ErrSuperseded)

	rows := s.CurrentRows()
	require.NotEmpty(t, rows)
	assert.Equal(t, "b", rows[0].String("name"))
	assert.Equal(t, "b", s.Query().SearchText)
	assert.Equal(t, Ready, s.State())
}

func TestFailureKeepsPriorRows(t *testing.T) {
	lister := &fakeLister{ids: idRange(4)}
	s := New("customers", lister, domain.ListQuery{PageSize: 10})
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	boom := domain.UpstreamError{Status: 500, Msg: "down"}
	lister.setFail(boom)
	err := s.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, Failed, s.State())
	assert.Equal(t, boom, s.Err())
	assert.Len(t, s.CurrentRows(), 4)
	assert.Equal(t, 4, s.CurrentTotal())

	lister.setFail(nil)
	require.NoError(t, s.Refresh(ctx))
	assert.NoError(t, s.Err())
	assert.Equal(t, Ready, s.State())
}

func TestRefreshBypassesCacheAndSeesDeletes(t *testing.T) {
	lister := &fakeLister{ids: []int{41, 42, 43}}
	s := New("customers", lister, domain.ListQuery{PageSize: 10})
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.SetQuery(ctx, QueryPatch{SortField: strPtr("name")}))

	lister.mu.Lock()
	lister.ids = []int{41, 43}
	lister.mu.Unlock()

	require.NoError(t, s.Load(ctx))
	assert.Len(t, s.CurrentRows(), 3)

	require.NoError(t, s.Refresh(ctx))
	for _, rec := range s.CurrentRows() {
		assert.NotEqual(t, "42", rec.ID())
	}
	assert.Equal(t, 2, s.CurrentTotal())

	calls := lister.count()
	require.NoError(t, s.SetQuery(ctx, QueryPatch{SortField: strPtr("")}))
	assert.Equal(t, calls+1, lister.count())
}

func TestRowsAreCopies(t *testing.T) {
	s := New("branches", &fakeLister{ids: idRange(2)}, domain.ListQuery{PageSize: 10})
	require.NoError(t, s.Load(context.Background()))
	rows := s.CurrentRows()
	rows[0] = domain.Record{"id": "x"}
	assert.Equal(t, "1", s.CurrentRows()[0].ID())
	assert.NoError(t, s.Err())
}
