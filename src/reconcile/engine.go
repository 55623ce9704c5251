// Package reconcile builds the actionable work queue of a screen: the primary
// listing minus everything a companion service reports as already processed.
package reconcile

import (
	"context"
	"fmt"

	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/models"
)

// Query is what a screen asks the remote listings for. Page and Limit are zero
// when the caller wants every matching row.
type Query struct {
	Start          models.Date
	End            models.Date
	CounterpartyID string
	Status         string
	Type           string
	SortField      string
	SortDir        string
	Page           int
	Limit          int
}

// Page is one answer of a primary listing. Total is whatever the backend reported.
type Page[T any] struct {
	Items []T
	Total int
}

// Result is the actionable queue. Total is the primary's reported total and is
// not reduced by the subtraction.
type Result[T any] struct {
	Items []T
	Total int
}

type PrimarySource[T any] func(ctx context.Context, q Query) (Page[T], error)

// MarkerSource returns the keys of the processed markers.
type MarkerSource func(ctx context.Context, q Query) ([]string, error)

type Engine[T models.WorkItem] struct {
	name    string
	primary PrimarySource[T]
	markers MarkerSource
}

// New creates an engine. A nil markers source disables the subtraction.
func New[T models.WorkItem](name string, primary PrimarySource[T], markers MarkerSource) *Engine[T] {
	return &Engine[T]{name: name, primary: primary, markers: markers}
}

// GetActionable fetches both listings and subtracts. Either fetch failing fails
// the whole call.
func (e *Engine[T]) GetActionable(ctx context.Context, q Query) (Result[T], error) {
	log := logger.FromContext(ctx).With("list", e.name)

	page, err := e.primary(ctx, q)
	if err != nil {
		log.Warn("Primary listing failed", "error", err)
		return Result[T]{}, fmt.Errorf("failed to fetch %s: %w", e.name, err)
	}

	items := page.Items
	if e.markers != nil {
		keys, err := e.markers(ctx, q)
		if err != nil {
			log.Warn("Processed listing failed", "error", err)
			return Result[T]{}, fmt.Errorf("failed to fetch processed %s: %w", e.name, err)
		}
		items = Subtract(items, KeySet(keys))
		log.Debug("Reconciled listing", "primary", len(page.Items), "processed", len(keys), "actionable", len(items))
	}
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items, Total: page.Total}, nil
}

// Subtract keeps the items whose id is not in processed. Order is preserved.
func Subtract[T models.WorkItem](items []T, processed map[string]struct{}) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, done := processed[it.ItemID()]; done {
			continue
		}
		out = append(out, it)
	}
	return out
}

func KeySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		set[k] = struct{}{}
	}
	return set
}

// MarkerKeys extracts the reference of each processed marker.
func MarkerKeys(markers []models.ProcessedMarker) []string {
	keys := make([]string, 0, len(markers))
	for _, m := range markers {
		keys = append(keys, m.Key())
	}
	return keys
}
