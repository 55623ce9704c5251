// Package dispatch runs confirmed batch actions against the remote backends.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/username/backoffice/backend/src/controller"
	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/models"
)

type Kind string

const (
	KindPay            Kind = "pay"
	KindProcess        Kind = "process"
	KindReprocess      Kind = "reprocess"
	KindSendToDirector Kind = "send_to_director"
	KindSendToSystem   Kind = "send_to_system"
	KindDelete         Kind = "delete"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindPay, KindProcess, KindReprocess, KindSendToDirector, KindSendToSystem, KindDelete:
		return k, true
	}
	return "", false
}

var (
	// ErrPrecondition is returned when the batch fails validation. Nothing was sent.
	ErrPrecondition = errors.New("action precondition failed")
	ErrNoTargets    = errors.New("no items selected")
	ErrUnknownItems = errors.New("selected items are no longer listed")
	ErrNotAllowed   = errors.New("action not available on this screen")
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Notification is the toast shown to the user after an action.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Action describes one kind of mutation. Send receives the whole batch and must
// make a single remote call.
type Action[T models.WorkItem] struct {
	Kind     Kind
	Validate func(items []T) error
	Send     func(ctx context.Context, items []T, extra map[string]any) error
}

// Target is the list the action operates on.
type Target[T models.WorkItem] interface {
	Resolve(ids []string) ([]T, []string)
	ClearSelection()
	Refresh(ctx context.Context) error
}

type Dispatcher[T models.WorkItem] struct {
	target  Target[T]
	actions map[Kind]Action[T]
}

func New[T models.WorkItem](target Target[T], actions ...Action[T]) *Dispatcher[T] {
	d := &Dispatcher[T]{target: target, actions: make(map[Kind]Action[T], len(actions))}
	for _, a := range actions {
		d.actions[a.Kind] = a
	}
	return d
}

func (d *Dispatcher[T]) Supports(kind Kind) bool {
	_, ok := d.actions[kind]
	return ok
}

// Dispatch validates the batch, sends it once and refreshes the list once on success.
// On failure the selection and the list are left as they were.
func (d *Dispatcher[T]) Dispatch(ctx context.Context, kind Kind, ids []string, extra map[string]any) ([]Notification, error) {
	log := logger.FromContext(ctx).With("action", string(kind), "count", len(ids))

	action, ok := d.actions[kind]
	if !ok {
		return []Notification{{Level: LevelError, Message: "Ação não disponível."}}, ErrNotAllowed
	}
	if len(ids) == 0 {
		return []Notification{{Level: LevelError, Message: "Selecione ao menos um item."}}, ErrNoTargets
	}

	items, missing := d.target.Resolve(ids)
	if len(missing) > 0 {
		log.Warn("Action references items not on the current page", "missing", missing)
		return []Notification{{Level: LevelError, Message: "Alguns itens selecionados não estão mais na lista. Atualize e tente novamente."}},
			fmt.Errorf("%w: %v", ErrUnknownItems, missing)
	}

	if action.Validate != nil {
		if err := action.Validate(items); err != nil {
			log.Info("Action rejected before sending", "reason", err)
			return []Notification{{Level: LevelError, Message: err.Error()}}, fmt.Errorf("%w: %w", ErrPrecondition, err)
		}
	}

	if err := action.Send(ctx, items, extra); err != nil {
		log.Warn("Action failed", "error", err)
		return []Notification{{Level: LevelError, Message: gateway.BusinessMessage(err, failureMessage(kind, len(items)))}}, err
	}
	log.Info("Action completed")

	d.target.ClearSelection()
	notes := []Notification{{Level: LevelSuccess, Message: successMessage(kind, len(items))}}
	// Uma resposta descartada significa que outra busca mais nova já está em andamento.
	if err := d.target.Refresh(ctx); errors.Is(err, controller.ErrStaleResponse) {
		log.Debug("Refresh after action superseded by a newer listing")
	} else if err != nil {
		log.Warn("Refresh after action failed", "error", err)
		notes = append(notes, Notification{Level: LevelWarning, Message: "A lista não pôde ser atualizada."})
	}
	return notes, nil
}

var participles = map[Kind]string{
	KindPay:            "pago",
	KindProcess:        "processado",
	KindReprocess:      "reprocessado",
	KindSendToDirector: "enviado ao diretor",
	KindSendToSystem:   "enviado ao sistema",
	KindDelete:         "excluído",
}

var infinitives = map[Kind]string{
	KindPay:            "pagar",
	KindProcess:        "processar",
	KindReprocess:      "reprocessar",
	KindSendToDirector: "enviar ao diretor",
	KindSendToSystem:   "enviar ao sistema",
	KindDelete:         "excluir",
}

func successMessage(kind Kind, n int) string {
	p := participles[kind]
	if n == 1 {
		return fmt.Sprintf("1 item %s com sucesso.", p)
	}
	return fmt.Sprintf("%d itens %s com sucesso.", n, pluralize(p))
}

func failureMessage(kind Kind, n int) string {
	if n == 1 {
		return fmt.Sprintf("Erro ao %s o item.", infinitives[kind])
	}
	return fmt.Sprintf("Erro ao %s os itens.", infinitives[kind])
}

// pluralize turns the leading participle into its plural form.
func pluralize(p string) string {
	for i, r := range p {
		if r == ' ' {
			return p[:i] + "s" + p[i:]
		}
	}
	return p + "s"
}
