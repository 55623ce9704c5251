// backend/src/services/interfaces.go
package services

import (
	"context"
	"errors"
	"io"

	"github.com/username/backoffice/backend/src/controller"
	"github.com/username/backoffice/backend/src/dispatch"
	"github.com/username/backoffice/backend/src/models"
)

// Define common service errors
var (
	ErrUnknownScreen = errors.New("unknown screen")
	ErrNotFound      = errors.New("item not found on the current page")
	ErrForbidden     = errors.New("operation not allowed for the item state")
	ErrSuperseded    = errors.New("superseded by a newer search")
)

// Screen is one list screen of a session: filter/sort/page state, the
// actionable rows and the batch actions available on them.
type Screen interface {
	Name() string
	View(ctx context.Context) ScreenView
	Filter(ctx context.Context, criteria controller.Criteria) error
	Refresh(ctx context.Context) error
	// Paginate moves to page with the given page size. Zero keeps the current size.
	Paginate(ctx context.Context, page, size int) error
	ToggleSort(ctx context.Context, field string) error
	Search(term string)
	Select(op SelectionOp) error
	Act(ctx context.Context, kind dispatch.Kind, ids []string, extra map[string]any) ([]dispatch.Notification, error)
	Export(w io.Writer) error
}

// PaymentRequestService covers the create and edit forms of the payment requests screen.
type PaymentRequestService interface {
	Create(ctx context.Context, in PaymentRequestInput) ([]dispatch.Notification, error)
	Update(ctx context.Context, id string, in PaymentRequestInput) ([]dispatch.Notification, error)
}

type LookupService interface {
	Contacts(ctx context.Context, search string) ([]models.Contact, error)
	Freelancers(ctx context.Context) ([]models.Freelancer, error)
	PaymentTypes(ctx context.Context) ([]models.PaymentType, error)
	BankAccounts(ctx context.Context) ([]models.BankAccountBank, error)
	BankDirectory(ctx context.Context, query string) ([]BankEntry, error)
}

type WhatsAppUserService interface {
	List(ctx context.Context) ([]models.WhatsAppUser, error)
	Create(ctx context.Context, u models.WhatsAppUser) (models.WhatsAppUser, error)
	Update(ctx context.Context, id string, u models.WhatsAppUser) (models.WhatsAppUser, error)
	Delete(ctx context.Context, id string) error
}

type ApprovalLinkService interface {
	List(ctx context.Context) ([]models.ApprovalLink, error)
	Create(ctx context.Context, l models.ApprovalLink) (models.ApprovalLink, error)
	Delete(ctx context.Context, id string) error
}
