package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/username/backoffice/backend/src/controller"
	"github.com/username/backoffice/backend/src/dispatch"
	"github.com/username/backoffice/backend/src/format"
	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/security/validation"
)

// ScreenView is what a list screen renders.
type ScreenView struct {
	Name       string              `json:"name"`
	State      controller.State    `json:"state"`
	Error      string              `json:"error,omitempty"`
	Mode       string              `json:"mode"`
	Criteria   controller.Criteria `json:"criteria"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	Total      int                 `json:"total"`
	TotalPages int                 `json:"total_pages"`
	PageAmount string              `json:"page_amount,omitempty"`
	Rows       []any               `json:"rows"`
	Selected   []string            `json:"selected"`
	Actions    []dispatch.Kind     `json:"actions"`
}

type SelectionOp struct {
	Action string   `json:"action"` // select, deselect, all, clear
	IDs    []string `json:"ids"`
}

// screen wires a controller and a dispatcher for one item type.
type screen[T models.WorkItem] struct {
	name     string
	ctrl     *controller.Controller[T]
	disp     *dispatch.Dispatcher[T]
	kinds    []dispatch.Kind
	annotate func(item T, today time.Time) any
	amount   func(item T) models.Amount
	columns  []Column[T]
	now      func() time.Time
}

func (s *screen[T]) Name() string { return s.name }

func (s *screen[T]) View(ctx context.Context) ScreenView {
	v := s.ctrl.View()
	today := s.now()

	rows := make([]any, len(v.Items))
	amounts := make([]models.Amount, 0, len(v.Items))
	for i, it := range v.Items {
		if s.annotate != nil {
			rows[i] = s.annotate(it, today)
		} else {
			rows[i] = it
		}
		if s.amount != nil {
			amounts = append(amounts, s.amount(it))
		}
	}

	out := ScreenView{
		Name:       s.name,
		State:      v.State,
		Error:      v.Error,
		Mode:       v.Mode,
		Criteria:   v.Criteria,
		Page:       v.Page,
		PageSize:   v.PageSize,
		Total:      v.Total,
		TotalPages: v.TotalPages,
		Rows:       rows,
		Selected:   v.Selected,
		Actions:    s.kinds,
	}
	if s.amount != nil {
		out.PageAmount = format.Currency(models.Sum(amounts...))
	}
	return out
}

func (s *screen[T]) Filter(ctx context.Context, criteria controller.Criteria) error {
	if err := validation.ValidateDateRange(criteria.Start.Time, criteria.End.Time); err != nil {
		return err
	}
	criteria.Search = validation.SanitizeSearchTerm(criteria.Search)
	criteria.CounterpartyID = strings.TrimSpace(criteria.CounterpartyID)
	return ignoreStale(s.ctrl.Filter(ctx, criteria))
}

func (s *screen[T]) Refresh(ctx context.Context) error {
	return ignoreStale(s.ctrl.Refresh(ctx))
}

func (s *screen[T]) Paginate(ctx context.Context, page, size int) error {
	return ignoreStale(s.ctrl.Paginate(ctx, page, size))
}

func (s *screen[T]) ToggleSort(ctx context.Context, field string) error {
	return ignoreStale(s.ctrl.ToggleSort(ctx, field))
}

func (s *screen[T]) Search(term string) {
	s.ctrl.Search(validation.SanitizeSearchTerm(term))
}

func (s *screen[T]) Select(op SelectionOp) error {
	switch op.Action {
	case "select":
		s.ctrl.Select(op.IDs...)
	case "deselect":
		s.ctrl.Deselect(op.IDs...)
	case "all":
		s.ctrl.SelectAllOnPage()
	case "clear":
		s.ctrl.ClearSelection()
	default:
		return fmt.Errorf("%w: ação de seleção desconhecida '%s'", validation.ErrValidationFailed, op.Action)
	}
	return nil
}

func (s *screen[T]) Act(ctx context.Context, kind dispatch.Kind, ids []string, extra map[string]any) ([]dispatch.Notification, error) {
	if s.disp == nil {
		return []dispatch.Notification{{Level: dispatch.LevelError, Message: "Ação não disponível."}}, dispatch.ErrNotAllowed
	}
	notes, err := s.disp.Dispatch(ctx, kind, ids, extra)
	if errors.Is(err, controller.ErrStaleResponse) {
		err = nil
	}
	return notes, err
}

func (s *screen[T]) Export(w io.Writer) error {
	return WriteXLSX(w, s.name, s.columns, s.ctrl.Rows())
}

// A stale response means a newer request already owns the view.
func ignoreStale(err error) error {
	if errors.Is(err, controller.ErrStaleResponse) {
		return nil
	}
	return err
}
