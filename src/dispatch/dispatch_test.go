package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/backoffice/backend/src/approval"
	"github.com/username/backoffice/backend/src/controller"
	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/reconcile"
)

type countingBackend struct {
	listCalls   int
	actionCalls int
	sent        [][]string
	paid        map[string]bool
	sendErr     error
	data        []models.PaymentRequest
}

func (b *countingBackend) list(ctx context.Context, q reconcile.Query) (reconcile.Result[models.PaymentRequest], error) {
	b.listCalls++
	out := []models.PaymentRequest{}
	for _, r := range b.data {
		if !b.paid[string(r.ID)] {
			out = append(out, r)
		}
	}
	return reconcile.Result[models.PaymentRequest]{Items: out, Total: len(out)}, nil
}

func (b *countingBackend) send(ctx context.Context, items []models.PaymentRequest, extra map[string]any) error {
	b.actionCalls++
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = string(it.ID)
	}
	b.sent = append(b.sent, ids)
	if b.sendErr != nil {
		return b.sendErr
	}
	for _, id := range ids {
		b.paid[id] = true
	}
	return nil
}

func request(id string, dept, dir models.ApprovalStatus) models.PaymentRequest {
	return models.PaymentRequest{ID: models.ID(id), ApprovedDepartment: dept, ApprovedDirector: dir}
}

func setup(t *testing.T, data ...models.PaymentRequest) (*countingBackend, *controller.Controller[models.PaymentRequest], *Dispatcher[models.PaymentRequest]) {
	t.Helper()
	b := &countingBackend{paid: map[string]bool{}, data: data}
	c := controller.New("requests", b.list, controller.Criteria{}, controller.Options[models.PaymentRequest]{Mode: controller.ModeClient})
	require.NoError(t, c.Refresh(context.Background()))

	requireAll := func(ok func(approval.Permissions) bool, msg string) func([]models.PaymentRequest) error {
		return func(items []models.PaymentRequest) error {
			for _, it := range items {
				if !ok(approval.Evaluate(it.ApprovedDepartment, it.ApprovedDirector)) {
					return errors.New(msg)
				}
			}
			return nil
		}
	}
	d := New[models.PaymentRequest](c,
		Action[models.PaymentRequest]{
			Kind:     KindSendToDirector,
			Validate: requireAll(func(p approval.Permissions) bool { return p.CanSendToDirector }, "Todas as solicitações precisam de aprovação do departamento."),
			Send:     b.send,
		},
		Action[models.PaymentRequest]{Kind: KindPay, Send: b.send},
	)
	return b, c, d
}

func TestDispatch_RejectsMixedBatchWithoutNetwork(t *testing.T) {
	b, c, d := setup(t,
		request("1", models.Approved, models.Pending),
		request("2", models.Pending, models.Pending),
	)
	c.Select("1", "2")
	listBefore := b.listCalls

	notes, err := d.Dispatch(context.Background(), KindSendToDirector, []string{"1", "2"}, nil)

	assert.ErrorIs(t, err, ErrPrecondition)
	require.Len(t, notes, 1)
	assert.Equal(t, LevelError, notes[0].Level)
	assert.Zero(t, b.actionCalls)
	assert.Equal(t, listBefore, b.listCalls)
	assert.Equal(t, []string{"1", "2"}, c.Selected())
}

func TestDispatch_SinglePaymentClearsSelectionAndRefetchesOnce(t *testing.T) {
	b, c, d := setup(t,
		request("1", models.Pending, models.Pending),
		request("2", models.Pending, models.Pending),
	)
	c.Select("1")
	listBefore := b.listCalls

	notes, err := d.Dispatch(context.Background(), KindPay, []string{"1"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, b.actionCalls)
	assert.Equal(t, 1, b.listCalls-listBefore)
	assert.Empty(t, c.Selected())
	require.Len(t, notes, 1)
	assert.Equal(t, Notification{Level: LevelSuccess, Message: "1 item pago com sucesso."}, notes[0])

	v := c.View()
	require.Len(t, v.Items, 1)
	assert.Equal(t, models.ID("2"), v.Items[0].ID)
}

func TestDispatch_BatchIsOneCall(t *testing.T) {
	b, _, d := setup(t,
		request("1", models.Approved, models.Pending),
		request("2", models.Approved, models.Pending),
		request("3", models.Approved, models.Pending),
	)

	notes, err := d.Dispatch(context.Background(), KindSendToDirector, []string{"1", "2", "3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, b.actionCalls)
	assert.Equal(t, [][]string{{"1", "2", "3"}}, b.sent)
	assert.Equal(t, "3 itens enviados ao diretor com sucesso.", notes[0].Message)
}

func TestDispatch_FailureLeavesStateUntouched(t *testing.T) {
	b, c, d := setup(t, request("1", models.Pending, models.Pending))
	b.sendErr = &gateway.HTTPError{
		Status:  http.StatusBadRequest,
		Message: "Saldo insuficiente",
		Data:    json.RawMessage(`{"message":"Saldo insuficiente"}`),
	}
	c.Select("1")
	listBefore := b.listCalls

	notes, err := d.Dispatch(context.Background(), KindPay, []string{"1"}, nil)
	require.Error(t, err)
	assert.Equal(t, []Notification{{Level: LevelError, Message: "Saldo insuficiente"}}, notes)
	assert.Equal(t, listBefore, b.listCalls)
	assert.Equal(t, []string{"1"}, c.Selected())
	assert.Len(t, c.View().Items, 1)
}

func TestDispatch_FailureWithoutBackendMessage(t *testing.T) {
	b, _, d := setup(t, request("1", models.Pending, models.Pending), request("2", models.Pending, models.Pending))
	b.sendErr = errors.New("connection refused")

	notes, err := d.Dispatch(context.Background(), KindPay, []string{"1", "2"}, nil)
	require.Error(t, err)
	assert.Equal(t, "Erro ao pagar os itens.", notes[0].Message)
}

// refreshOverride answers Refresh with err instead of refetching.
type refreshOverride struct {
	*controller.Controller[models.PaymentRequest]
	err error
}

func (r refreshOverride) Refresh(ctx context.Context) error { return r.err }

func TestDispatch_RefreshOutcome(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		notes int
	}{
		{"superseded refresh is silent", controller.ErrStaleResponse, 1},
		{"wrapped superseded refresh is silent", fmt.Errorf("listing: %w", controller.ErrStaleResponse), 1},
		{"failed refresh warns", errors.New("timeout"), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, c, _ := setup(t, request("1", models.Pending, models.Pending))
			d := New[models.PaymentRequest](refreshOverride{c, tt.err}, Action[models.PaymentRequest]{Kind: KindPay, Send: b.send})

			notes, err := d.Dispatch(context.Background(), KindPay, []string{"1"}, nil)
			require.NoError(t, err)
			require.Len(t, notes, tt.notes)
			assert.Equal(t, LevelSuccess, notes[0].Level)
			if tt.notes == 2 {
				assert.Equal(t, Notification{Level: LevelWarning, Message: "A lista não pôde ser atualizada."}, notes[1])
			}
		})
	}
}

func TestDispatch_Guards(t *testing.T) {
	b, _, d := setup(t, request("1", models.Pending, models.Pending))

	_, err := d.Dispatch(context.Background(), KindPay, nil, nil)
	assert.ErrorIs(t, err, ErrNoTargets)

	_, err = d.Dispatch(context.Background(), KindDelete, []string{"1"}, nil)
	assert.ErrorIs(t, err, ErrNotAllowed)

	_, err = d.Dispatch(context.Background(), KindPay, []string{"42"}, nil)
	assert.ErrorIs(t, err, ErrUnknownItems)

	assert.Zero(t, b.actionCalls)
}

func TestMessages(t *testing.T) {
	tests := []struct {
		kind Kind
		n    int
		want string
	}{
		{KindProcess, 1, "1 item processado com sucesso."},
		{KindProcess, 4, "4 itens processados com sucesso."},
		{KindSendToSystem, 2, "2 itens enviados ao sistema com sucesso."},
		{KindDelete, 1, "1 item excluído com sucesso."},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.kind, tt.n), func(t *testing.T) {
			assert.Equal(t, tt.want, successMessage(tt.kind, tt.n))
		})
	}
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("send_to_system")
	assert.True(t, ok)
	assert.Equal(t, KindSendToSystem, k)

	_, ok = ParseKind("approve")
	assert.False(t, ok)
}
