// Package controller holds the filter, sort, paging and selection state of a
// list screen on top of a reconcile.Engine.
package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/username/backoffice/backend/src/format"
	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/reconcile"
)

// ErrStaleResponse is returned when a fetch resolved after a newer one was issued.
var ErrStaleResponse = errors.New("stale response discarded")

type Mode int

const (
	// ModeClient fetches every matching row and pages locally.
	ModeClient Mode = iota
	// ModeServer sends page/limit and trusts the backend total.
	ModeServer
)

func (m Mode) String() string {
	if m == ModeServer {
		return "server"
	}
	return "client"
}

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "loading":
		*s = StateLoading
	case "ready":
		*s = StateReady
	case "error":
		*s = StateError
	case "idle", "":
		*s = StateIdle
	default:
		return fmt.Errorf("unknown state %q", b)
	}
	return nil
}

const DefaultPageSize = 10

type Fetcher[T models.WorkItem] func(ctx context.Context, q reconcile.Query) (reconcile.Result[T], error)

type Options[T models.WorkItem] struct {
	Mode     Mode
	PageSize int
	// LocalCounterparty filters by Criteria.CounterpartyID on the fetched rows
	// instead of sending it to the backend.
	LocalCounterparty bool
	// Compare orders rows locally in client mode. Nil keeps the backend order.
	Compare func(field string, a, b T) int
	// OnState observes every state transition.
	OnState func(State)
}

type Controller[T models.WorkItem] struct {
	name  string
	fetch Fetcher[T]
	opts  Options[T]

	mu        sync.Mutex
	state     State
	lastErr   error
	criteria  Criteria
	page      int
	pageSize  int
	gen       uint64
	snapshot  []T
	total     int
	selection map[string]struct{}
}

func New[T models.WorkItem](name string, fetch Fetcher[T], initial Criteria, opts Options[T]) *Controller[T] {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Controller[T]{
		name:      name,
		fetch:     fetch,
		opts:      opts,
		criteria:  initial,
		page:      1,
		pageSize:  size,
		selection: make(map[string]struct{}),
	}
}

func (c *Controller[T]) Mode() Mode { return c.opts.Mode }

// Filter replaces the criteria, clears the selection and refetches from page 1.
func (c *Controller[T]) Filter(ctx context.Context, criteria Criteria) error {
	c.mu.Lock()
	c.criteria = criteria
	c.page = 1
	c.clearSelectionLocked()
	c.mu.Unlock()
	return c.load(ctx)
}

// Refresh refetches with the same criteria. The selection survives, pruned to
// the rows still on the page.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	return c.load(ctx)
}

// SetPage moves to page n and clears the selection. Client mode only re-slices.
func (c *Controller[T]) SetPage(ctx context.Context, n int) error {
	return c.Paginate(ctx, n, 0)
}

// SetPageSize changes the page size and goes back to page 1.
func (c *Controller[T]) SetPageSize(ctx context.Context, size int) error {
	if size <= 0 {
		size = DefaultPageSize
	}
	return c.Paginate(ctx, 1, size)
}

// Paginate applies page and size together, so a server-paged list fetches
// once. A size of zero keeps the current one.
func (c *Controller[T]) Paginate(ctx context.Context, page, size int) error {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	if size > 0 {
		c.pageSize = size
	}
	c.page = page
	c.clearSelectionLocked()
	if c.opts.Mode == ModeClient {
		c.clampPageLocked()
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.load(ctx)
}

// ToggleSort advances the sort of field and refetches.
func (c *Controller[T]) ToggleSort(ctx context.Context, field string) error {
	c.mu.Lock()
	c.criteria.Sort = c.criteria.Sort.Toggle(field)
	c.page = 1
	c.mu.Unlock()
	return c.load(ctx)
}

// Search filters the last snapshot. It never fetches, so a server-paged list
// keeps its page and only the rows already fetched are searched.
func (c *Controller[T]) Search(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.Search = term
	if c.opts.Mode == ModeClient {
		c.page = 1
	}
	c.pruneSelectionLocked()
}

func (c *Controller[T]) Select(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	onPage := c.pageIDsLocked()
	for _, id := range ids {
		if _, ok := onPage[id]; ok {
			c.selection[id] = struct{}{}
		}
	}
}

func (c *Controller[T]) Deselect(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.selection, id)
	}
}

// SelectAllOnPage selects exactly the rows currently rendered.
func (c *Controller[T]) SelectAllOnPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = c.pageIDsLocked()
}

func (c *Controller[T]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearSelectionLocked()
}

// Selected returns the selected ids in page order.
func (c *Controller[T]) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedLocked()
}

// Resolve maps ids to the rows of the current page. Unknown ids are returned apart.
func (c *Controller[T]) Resolve(ids []string) (found []T, missing []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byID := make(map[string]T)
	for _, it := range c.pageItemsLocked() {
		byID[it.ItemID()] = it
	}
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			found = append(found, it)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing
}

// Rows returns every row matching the current criteria, not only the page.
func (c *Controller[T]) Rows() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.visibleLocked()...)
}

type View[T models.WorkItem] struct {
	Name       string   `json:"name"`
	State      State    `json:"state"`
	Error      string   `json:"error,omitempty"`
	Mode       string   `json:"mode"`
	Criteria   Criteria `json:"criteria"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
	Items      []T      `json:"items"`
	Selected   []string `json:"selected"`
}

func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View[T]{
		Name:     c.name,
		State:    c.state,
		Mode:     c.opts.Mode.String(),
		Criteria: c.criteria,
		Page:     c.page,
		PageSize: c.pageSize,
		Total:    c.totalLocked(),
		Items:    c.pageItemsLocked(),
		Selected: c.selectedLocked(),
	}
	if c.lastErr != nil {
		v.Error = c.lastErr.Error()
	}
	if v.Items == nil {
		v.Items = []T{}
	}
	if v.PageSize > 0 {
		v.TotalPages = (v.Total + v.PageSize - 1) / v.PageSize
	}
	return v
}

func (c *Controller[T]) load(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	q := c.queryLocked()
	c.snapshot = nil
	c.total = 0
	c.lastErr = nil
	c.setStateLocked(StateLoading)
	c.mu.Unlock()

	res, err := c.fetch(ctx, q)
	return c.complete(ctx, gen, res, err)
}

func (c *Controller[T]) complete(ctx context.Context, gen uint64, res reconcile.Result[T], err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		logger.FromContext(ctx).Debug("Discarding stale listing", "list", c.name, "generation", gen, "latest", c.gen)
		return ErrStaleResponse
	}
	if err != nil {
		c.lastErr = err
		c.snapshot = nil
		c.total = 0
		c.selection = make(map[string]struct{})
		c.setStateLocked(StateError)
		c.setStateLocked(StateIdle)
		return err
	}

	c.snapshot = res.Items
	c.total = res.Total
	c.clampPageLocked()
	c.pruneSelectionLocked()
	c.setStateLocked(StateReady)
	return nil
}

func (c *Controller[T]) setStateLocked(s State) {
	c.state = s
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}

func (c *Controller[T]) queryLocked() reconcile.Query {
	cr := c.criteria
	q := reconcile.Query{
		Start:     cr.Start,
		End:       cr.End,
		Status:    cr.Status,
		Type:      cr.Type,
		SortField: cr.Sort.Field,
		SortDir:   cr.Sort.Dir.String(),
	}
	if cr.Sort.Dir == SortNone {
		q.SortField = ""
	}
	if !c.opts.LocalCounterparty {
		q.CounterpartyID = cr.CounterpartyID
	}
	if c.opts.Mode == ModeServer {
		q.Page = c.page
		q.Limit = c.pageSize
	}
	return q
}

// visibleLocked applies the local filters to the snapshot.
func (c *Controller[T]) visibleLocked() []T {
	cr := c.criteria
	needle := format.Fold(cr.Search)
	clientMode := c.opts.Mode == ModeClient

	out := make([]T, 0, len(c.snapshot))
	for _, it := range c.snapshot {
		if clientMode && (!cr.Start.IsZero() || !cr.End.IsZero()) {
			if d, ok := any(it).(models.Dated); ok && !d.FilterDate().Within(cr.Start, cr.End) {
				continue
			}
		}
		if c.opts.LocalCounterparty && cr.CounterpartyID != "" {
			if cp, ok := any(it).(models.Counterparty); ok && cp.CounterpartyID() != cr.CounterpartyID {
				continue
			}
		}
		if needle != "" {
			if s, ok := any(it).(models.Searchable); ok && !format.Contains(s.SearchText(), cr.Search) {
				continue
			}
		}
		out = append(out, it)
	}

	if clientMode && c.opts.Compare != nil && cr.Sort.Dir != SortNone {
		field, desc := cr.Sort.Field, cr.Sort.Dir == SortDesc
		slices.SortStableFunc(out, func(a, b T) int {
			r := c.opts.Compare(field, a, b)
			if desc {
				return -r
			}
			return r
		})
	}
	return out
}

func (c *Controller[T]) totalLocked() int {
	if c.opts.Mode == ModeServer {
		return c.total
	}
	return len(c.visibleLocked())
}

func (c *Controller[T]) pageItemsLocked() []T {
	visible := c.visibleLocked()
	if c.opts.Mode == ModeServer {
		return visible
	}
	from := (c.page - 1) * c.pageSize
	if from >= len(visible) {
		return []T{}
	}
	to := from + c.pageSize
	if to > len(visible) {
		to = len(visible)
	}
	return visible[from:to]
}

func (c *Controller[T]) pageIDsLocked() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, it := range c.pageItemsLocked() {
		ids[it.ItemID()] = struct{}{}
	}
	return ids
}

func (c *Controller[T]) pruneSelectionLocked() {
	if len(c.selection) == 0 {
		return
	}
	onPage := c.pageIDsLocked()
	for id := range c.selection {
		if _, ok := onPage[id]; !ok {
			delete(c.selection, id)
		}
	}
}

func (c *Controller[T]) clearSelectionLocked() {
	c.selection = make(map[string]struct{})
}

func (c *Controller[T]) selectedLocked() []string {
	out := []string{}
	for _, it := range c.pageItemsLocked() {
		if _, ok := c.selection[it.ItemID()]; ok {
			out = append(out, it.ItemID())
		}
	}
	return out
}

// clampPageLocked keeps a client-mode page inside the available range.
func (c *Controller[T]) clampPageLocked() {
	if c.opts.Mode != ModeClient {
		return
	}
	total := len(c.visibleLocked())
	last := (total + c.pageSize - 1) / c.pageSize
	if last < 1 {
		last = 1
	}
	if c.page > last {
		c.page = last
	}
}
