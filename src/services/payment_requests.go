package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/backoffice/backend/src/approval"
	"github.com/username/backoffice/backend/src/controller"
	"github.com/username/backoffice/backend/src/dispatch"
	"github.com/username/backoffice/backend/src/format"
	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/reconcile"
	"github.com/username/backoffice/backend/src/security/validation"
)

const (
	ScreenPaymentRequests = "payment-requests"

	paymentRequestsURI = "solicitacoes-pagamento"
)

type PaymentRequestRow struct {
	models.PaymentRequest
	DepartmentBadge approval.Badge       `json:"department_badge"`
	DirectorBadge   approval.Badge       `json:"director_badge"`
	Permissions     approval.Permissions `json:"permissions"`
	AmountLabel     string               `json:"amount_label"`
	DueLabel        string               `json:"due_label"`
}

// PaymentRequestInput is the create/edit form.
type PaymentRequestInput struct {
	Requester      string `json:"requester"`
	RequesterPhone string `json:"requester_phone"`
	Description    string `json:"description"`
	FreelancerID   string `json:"freelancer_id"`
	PaymentTypeID  string `json:"payment_type_id"`
	DueDate        string `json:"due_date"`
	Amount         string `json:"amount"`
}

// normalize validates the form and returns the payload sent to the backend.
func (in PaymentRequestInput) normalize() (map[string]any, error) {
	if err := validation.ValidateRequiredText(in.Requester, "solicitante", validation.MaxNameLength); err != nil {
		return nil, err
	}
	if err := validation.ValidateRequiredText(in.Description, "descrição", validation.MaxDescriptionLength); err != nil {
		return nil, err
	}
	amount, err := validation.ValidateAmount(in.Amount, "valor")
	if err != nil {
		return nil, err
	}
	due, err := validation.ValidateDateString(in.DueDate, "vencimento")
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"requester":       validation.SanitizeText(strings.TrimSpace(in.Requester)),
		"description":     validation.SanitizeText(strings.TrimSpace(in.Description)),
		"freelancer_id":   strings.TrimSpace(in.FreelancerID),
		"payment_type_id": strings.TrimSpace(in.PaymentTypeID),
		"due_date":        due.Format("2006-01-02"),
		"amount":          amount.StringFixed(2),
	}
	if strings.TrimSpace(in.RequesterPhone) != "" {
		phone, err := validation.ValidatePhone(in.RequesterPhone, "telefone")
		if err != nil {
			return nil, err
		}
		body["requester_phone"] = phone
	}
	return body, nil
}

type paymentRequests struct {
	*screen[models.PaymentRequest]
	gw *gateway.Client
}

// requireAll builds a validator that rejects the whole batch when one item lacks the permission.
func requireAll(allowed func(approval.Permissions) bool, message string) func([]models.PaymentRequest) error {
	return func(items []models.PaymentRequest) error {
		for _, it := range items {
			if !allowed(approval.Evaluate(it.ApprovedDepartment, it.ApprovedDirector)) {
				return errors.New(message)
			}
		}
		return nil
	}
}

func requestBatch(items []models.PaymentRequest) map[string]any {
	ids := make([]models.ID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return map[string]any{"ids": ids, "solicitacoes": items}
}

func newPaymentRequestsScreen(gw *gateway.Client, initial controller.Criteria, pageSize int, now func() time.Time) *paymentRequests {
	primary := func(ctx context.Context, q reconcile.Query) (reconcile.Page[models.PaymentRequest], error) {
		var raw json.RawMessage
		err := gw.Webhook(ctx, paymentRequestsURI, "list", map[string]any{
			"page":          q.Page,
			"limit":         q.Limit,
			"start_date":    dateParam(q.Start),
			"end_date":      dateParam(q.End),
			"status":        q.Status,
			"freelancer_id": q.CounterpartyID,
			"sortBy":        q.SortField,
			"sortDir":       q.SortDir,
		}, &raw)
		if err != nil {
			return reconcile.Page[models.PaymentRequest]{}, err
		}
		items, total, err := decodeList[models.PaymentRequest](raw)
		if err != nil {
			return reconcile.Page[models.PaymentRequest]{}, err
		}
		return reconcile.Page[models.PaymentRequest]{Items: items, Total: total}, nil
	}
	engine := reconcile.New(ScreenPaymentRequests, primary, processedMarkers(gw, paymentRequestsURI, "list_sent"))

	ctrl := controller.New(ScreenPaymentRequests, engine.GetActionable, initial, controller.Options[models.PaymentRequest]{
		Mode:     controller.ModeServer,
		PageSize: pageSize,
	})

	send := func(endpoint string) func(context.Context, []models.PaymentRequest, map[string]any) error {
		return func(ctx context.Context, items []models.PaymentRequest, extra map[string]any) error {
			return gw.Webhook(ctx, paymentRequestsURI, endpoint, withExtra(requestBatch(items), extra), nil)
		}
	}
	actions := []dispatch.Action[models.PaymentRequest]{
		{
			Kind:     dispatch.KindSendToDirector,
			Validate: requireAll(func(p approval.Permissions) bool { return p.CanSendToDirector }, "Apenas solicitações aprovadas pelo departamento e pendentes com o diretor podem ser enviadas ao diretor."),
			Send:     send("send_director"),
		},
		{
			Kind:     dispatch.KindSendToSystem,
			Validate: requireAll(func(p approval.Permissions) bool { return p.CanSendToSystem }, "Apenas solicitações aprovadas pelo departamento podem ser enviadas ao sistema."),
			Send:     send("send_system"),
		},
		{
			Kind:     dispatch.KindDelete,
			Validate: requireAll(func(p approval.Permissions) bool { return p.CanDelete }, "Apenas solicitações pendentes podem ser excluídas."),
			Send:     send("delete"),
		},
	}

	s := &screen[models.PaymentRequest]{
		name:  ScreenPaymentRequests,
		ctrl:  ctrl,
		disp:  dispatch.New[models.PaymentRequest](ctrl, actions...),
		kinds: []dispatch.Kind{dispatch.KindSendToDirector, dispatch.KindSendToSystem, dispatch.KindDelete},
		annotate: func(r models.PaymentRequest, _ time.Time) any {
			return PaymentRequestRow{
				PaymentRequest:  r,
				DepartmentBadge: approval.StatusBadge(r.ApprovedDepartment),
				DirectorBadge:   approval.StatusBadge(r.ApprovedDirector),
				Permissions:     approval.Evaluate(r.ApprovedDepartment, r.ApprovedDirector),
				AmountLabel:     format.Currency(r.Amount),
				DueLabel:        format.Date(r.DueDate.Time),
			}
		},
		amount: func(r models.PaymentRequest) models.Amount { return r.Amount },
		columns: []Column[models.PaymentRequest]{
			{Header: "ID", Value: func(r models.PaymentRequest) any { return string(r.ID) }},
			{Header: "Solicitante", Value: func(r models.PaymentRequest) any { return r.Requester }},
			{Header: "Descrição", Value: func(r models.PaymentRequest) any { return r.Description }},
			{Header: "Freelancer", Value: func(r models.PaymentRequest) any { return r.FreelancerName }},
			{Header: "Vencimento", Value: func(r models.PaymentRequest) any { return format.Date(r.DueDate.Time) }},
			{Header: "Valor", Value: func(r models.PaymentRequest) any { return amountCell(r.Amount) }},
			{Header: "Departamento", Value: func(r models.PaymentRequest) any { return approval.StatusBadge(r.ApprovedDepartment).Label }},
			{Header: "Diretor", Value: func(r models.PaymentRequest) any { return approval.StatusBadge(r.ApprovedDirector).Label }},
		},
		now: now,
	}
	return &paymentRequests{screen: s, gw: gw}
}

func (p *paymentRequests) Create(ctx context.Context, in PaymentRequestInput) ([]dispatch.Notification, error) {
	body, err := in.normalize()
	if err != nil {
		return []dispatch.Notification{{Level: dispatch.LevelError, Message: validation.Message(err)}}, err
	}
	if err := p.gw.Webhook(ctx, paymentRequestsURI, "create", body, nil); err != nil {
		logger.FromContext(ctx).Warn("Payment request creation failed", "error", err)
		return []dispatch.Notification{{Level: dispatch.LevelError, Message: gateway.BusinessMessage(err, "Erro ao criar a solicitação.")}}, err
	}
	return p.afterMutation(ctx, "Solicitação criada com sucesso."), nil
}

// Update edits a request that is still pending on both approvals.
func (p *paymentRequests) Update(ctx context.Context, id string, in PaymentRequestInput) ([]dispatch.Notification, error) {
	found, _ := p.ctrl.Resolve([]string{id})
	if len(found) == 0 {
		return []dispatch.Notification{{Level: dispatch.LevelError, Message: "Solicitação não encontrada na lista atual."}}, ErrNotFound
	}
	current := found[0]
	if !approval.Evaluate(current.ApprovedDepartment, current.ApprovedDirector).CanEdit {
		return []dispatch.Notification{{Level: dispatch.LevelError, Message: "Apenas solicitações pendentes podem ser editadas."}},
			fmt.Errorf("%w: payment request %s", ErrForbidden, id)
	}

	body, err := in.normalize()
	if err != nil {
		return []dispatch.Notification{{Level: dispatch.LevelError, Message: validation.Message(err)}}, err
	}
	body["id"] = current.ID
	if err := p.gw.Webhook(ctx, paymentRequestsURI, "update", body, nil); err != nil {
		logger.FromContext(ctx).Warn("Payment request update failed", "id", id, "error", err)
		return []dispatch.Notification{{Level: dispatch.LevelError, Message: gateway.BusinessMessage(err, "Erro ao atualizar a solicitação.")}}, err
	}
	return p.afterMutation(ctx, "Solicitação atualizada com sucesso."), nil
}

func (p *paymentRequests) afterMutation(ctx context.Context, message string) []dispatch.Notification {
	notes := []dispatch.Notification{{Level: dispatch.LevelSuccess, Message: message}}
	if err := p.Refresh(ctx); err != nil {
		notes = append(notes, dispatch.Notification{Level: dispatch.LevelWarning, Message: "A lista não pôde ser atualizada."})
	}
	return notes
}
