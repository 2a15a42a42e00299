// Package listsync keeps one entity list in sync with the backend.
package listsync

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/metrics"
)

// Lister fetches one page of an entity list.
type Lister interface {
	List(ctx context.Context, entity string, q domain.ListQuery) (domain.ListResult, error)
}

type State int

const (
	Idle State = iota
	Fetching
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrSuperseded is returned to a caller whose fetch completed after a newer
// one was issued. Its result was discarded.
var ErrSuperseded = errors.New("listsync: fetch superseded")

// QueryPatch changes the fields that are non-nil.
type QueryPatch struct {
	PageIndex      *int
	PageSize       *int
	SortField      *string
	SortDescending *bool
	SearchText     *string
	// Filters replaces the whole filter set when non-nil.
	Filters map[string]string
}

// Apply merges p into q. A changed search text forces page 0.
func (p QueryPatch) Apply(q domain.ListQuery) domain.ListQuery {
	out := q
	if p.PageIndex != nil {
		out.PageIndex = *p.PageIndex
	}
	if p.PageSize != nil {
		out.PageSize = *p.PageSize
	}
	if p.SortField != nil {
		out.SortField = *p.SortField
	}
	if p.SortDescending != nil {
		out.SortDescending = *p.SortDescending
	}
	if p.Filters != nil {
		filters := make(map[string]string, len(p.Filters))
		for k, v := range p.Filters {
			if strings.TrimSpace(v) != "" {
				filters[k] = v
			}
		}
		out.Filters = filters
	}
	if p.SearchText != nil && *p.SearchText != q.SearchText {
		out.SearchText = *p.SearchText
		out.PageIndex = 0
	}
	return out
}

// Synchronizer owns the query and last result of one entity list. It is safe
// for concurrent use; fetches block the calling goroutine.
//
// Only the most recently issued fetch may update visible state. Results stay
// cached per query key until Refresh.
type Synchronizer struct {
	entity string
	lister Lister
	group  singleflight.Group

	mu     sync.Mutex
	query  domain.ListQuery
	state  State
	gen    uint64
	epoch  uint64
	rows   []domain.Record
	total  int
	page   int
	err    error
	cache  map[string]domain.ListResult
	loaded bool
}

// New returns an idle synchronizer. Nothing is fetched until Load or SetQuery.
func New(entity string, lister Lister, initial domain.ListQuery) *Synchronizer {
	if initial.PageSize <= 0 {
		initial.PageSize = 10
	}
	if initial.PageIndex < 0 {
		initial.PageIndex = 0
	}
	return &Synchronizer{
		entity: entity,
		lister: lister,
		query:  initial,
		cache:  map[string]domain.ListResult{},
	}
}

func (s *Synchronizer) Entity() string { return s.entity }

// Load fetches the current query, using the cache when it holds the key.
func (s *Synchronizer) Load(ctx context.Context) error {
	return s.fetch(ctx, false)
}

// SetQuery merges patch into the current query and fetches when it changed.
func (s *Synchronizer) SetQuery(ctx context.Context, patch QueryPatch) error {
	s.mu.Lock()
	next := patch.Apply(s.query)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	changed := next.Key(s.entity) != s.query.Key(s.entity)
	s.query = next
	loaded := s.loaded
	s.mu.Unlock()

	if !changed && loaded {
		return nil
	}
	return s.fetch(ctx, false)
}

// Refresh drops every cached result of this instance and refetches the
// current query.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	for key := range s.cache {
		s.group.Forget(key)
	}
	s.group.Forget(s.query.Key(s.entity))
	s.cache = map[string]domain.ListResult{}
	s.epoch++
	s.mu.Unlock()
	return s.fetch(ctx, true)
}

func (s *Synchronizer) fetch(ctx context.Context, force bool) error {
	s.mu.Lock()
	q := s.query
	key := q.Key(s.entity)
	s.gen++
	gen, epoch := s.gen, s.epoch
	if !force {
		if res, ok := s.cache[key]; ok {
			s.apply(res)
			s.mu.Unlock()
			metrics.RecordListCache(s.entity, true)
			return nil
		}
	}
	s.state = Fetching
	s.mu.Unlock()
	metrics.RecordListCache(s.entity, false)

	// The shared call outlives any one caller's cancellation; each caller
	// stops waiting on its own ctx.
	ch := s.group.DoChan(key, func() (any, error) {
		return s.lister.List(context.WithoutCancel(ctx), s.entity, q)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}
	v, err := res.Val, res.Err

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil && epoch == s.epoch {
		s.cache[key] = v.(domain.ListResult)
	}
	if gen != s.gen {
		return ErrSuperseded
	}
	if err != nil {
		s.state = Failed
		s.err = err
		return err
	}
	s.apply(v.(domain.ListResult))
	return nil
}

// apply publishes res. Callers hold mu.
func (s *Synchronizer) apply(res domain.ListResult) {
	rows := make([]domain.Record, len(res.Items))
	copy(rows, res.Items)
	s.rows = rows
	s.total = res.TotalCount
	s.page = res.Page
	s.err = nil
	s.state = Ready
	s.loaded = true
}

// CurrentRows returns the visible rows. They survive a failed fetch.
func (s *Synchronizer) CurrentRows() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Record, len(s.rows))
	copy(out, s.rows)
	return out
}

func (s *Synchronizer) CurrentTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Synchronizer) IsFetching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Fetching
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the error of the last fetch, or nil after a success.
func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Synchronizer) Query() domain.ListQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// PageCount is the number of pages for the current total.
func (s *Synchronizer) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.total == 0 || s.query.PageSize <= 0 {
		return 1
	}
	return (s.total + s.query.PageSize - 1) / s.query.PageSize
}

// CurrentPage is the 1-based page of the visible rows.
func (s *Synchronizer) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == 0 {
		return s.query.Page()
	}
	return s.page
}
