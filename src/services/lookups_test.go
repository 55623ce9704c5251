package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/security/validation"
)

func TestDecodeList_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantLen   int
		wantTotal int
	}{
		{"array", `[{"id":1},{"id":2}]`, 2, 2},
		{"rows and count", `{"rows":[{"id":1}],"count":40}`, 1, 40},
		{"data and total", `{"data":[{"id":1},{"id":2}],"total":9}`, 2, 9},
		{"data and pagination", `{"success":true,"data":[{"id":1}],"pagination":{"total":3}}`, 1, 3},
		{"items only", `{"items":[{"id":1}]}`, 1, 1},
		{"null", `null`, 0, 0},
		{"empty object", `{}`, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := decodeList[models.Contact](json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Len(t, items, tt.wantLen)
			assert.Equal(t, tt.wantTotal, total)
		})
	}

	_, _, err := decodeList[models.Contact](json.RawMessage(`"text"`))
	assert.ErrorIs(t, err, gateway.ErrDecode)
}

func TestBankDirectory_FormatsAndFilters(t *testing.T) {
	b, gw := newBackend(t)
	b.on("/api/banks/v1", ok([]any{
		map[string]any{"ispb": "00000000", "name": "BCO DO BRASIL S.A.", "code": 1, "fullName": "Banco do Brasil S.A."},
		map[string]any{"ispb": "60701190", "name": "ITAÚ UNIBANCO S.A.", "code": 341, "fullName": "Itaú Unibanco S.A."},
		map[string]any{"ispb": "18236120", "name": "NU PAGAMENTOS - IP", "code": 260, "fullName": "Nu Pagamentos S.A."},
		map[string]any{"ispb": "99999999", "name": "SEM CODIGO", "code": nil, "fullName": "Sem código"},
	}))
	svc := NewLookupService(gw)
	ctx := context.Background()

	all, err := svc.BankDirectory(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)

	got, err := svc.BankDirectory(ctx, "001")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "001", got[0].Code)

	got, err = svc.BankDirectory(ctx, "itau")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "341", got[0].Code)

	assert.Empty(t, b.last("/api/banks/v1").Body)
}

func TestLookups_CRMPaths(t *testing.T) {
	b, gw := newBackend(t)
	b.on("/api/contacts/list", ok(map[string]any{"rows": []any{map[string]any{"id": 5, "name": "Cliente"}}, "count": 1}))
	b.on("/api/freelancers/list", ok([]any{map[string]any{"id": 1, "name": "Fotógrafo"}}))
	b.on("/api/payment_types/list", ok([]any{map[string]any{"id": 1, "name": "PIX"}}))
	b.on("/api/banks/list", ok([]any{map[string]any{"id": 1, "name": "Conta principal"}}))
	svc := NewLookupService(gw)
	ctx := context.Background()

	contacts, err := svc.Contacts(ctx, " cli ")
	require.NoError(t, err)
	assert.Equal(t, models.ID("5"), contacts[0].ID)
	assert.Equal(t, "cli", b.last("/api/contacts/list").Body["search"])

	freelancers, err := svc.Freelancers(ctx)
	require.NoError(t, err)
	assert.Len(t, freelancers, 1)

	types, err := svc.PaymentTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PIX", types[0].Name)

	accounts, err := svc.BankAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestWhatsAppUsers(t *testing.T) {
	b, gw := newBackend(t)
	b.on("/webhook/whatsapp-users#list", ok([]any{map[string]any{"id": 1, "name": "Ana", "phone": "5511987654321"}}))
	b.on("/webhook/whatsapp-users#create", func(body map[string]any) (int, any) {
		if body["phone"] == "5511911112222" {
			return http.StatusConflict, map[string]string{"code": "user_exist", "message": "duplicate"}
		}
		return http.StatusOK, map[string]any{"id": 2, "name": body["name"], "phone": body["phone"]}
	})
	svc := NewWhatsAppUserService(gw)
	ctx := context.Background()

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "(11) 98765-4321", users[0].Phone)

	_, err = svc.Create(ctx, models.WhatsAppUser{Name: "", Phone: "11987654321"})
	assert.ErrorIs(t, err, validation.ErrValidationFailed)
	_, err = svc.Create(ctx, models.WhatsAppUser{Name: "Bia", Phone: "123"})
	assert.ErrorIs(t, err, validation.ErrValidationFailed)
	assert.Zero(t, b.count("/webhook/whatsapp-users#create"))

	created, err := svc.Create(ctx, models.WhatsAppUser{Name: "Bia", Phone: "(11) 93333-4444"})
	require.NoError(t, err)
	assert.Equal(t, models.ID("2"), created.ID)
	assert.Equal(t, "5511933334444", b.last("/webhook/whatsapp-users#create").Body["phone"])

	_, err = svc.Create(ctx, models.WhatsAppUser{Name: "Caio", Phone: "11 91111-2222"})
	require.Error(t, err)
	assert.Equal(t, "Usuário já cadastrado com este telefone.", gateway.BusinessMessage(err, "falhou"))
}

func TestApprovalLinks(t *testing.T) {
	b, gw := newBackend(t)
	b.on("/webhook/approval-links#create", func(body map[string]any) (int, any) {
		if body["requester_id"] == "3" {
			return http.StatusConflict, map[string]string{"code": "user_link_exist", "message": "exists"}
		}
		return http.StatusOK, map[string]any{"id": 10, "requester_id": body["requester_id"], "approver_id": body["approver_id"]}
	})
	b.on("/webhook/approval-links#delete", ok(map[string]any{"success": true}))
	svc := NewApprovalLinkService(gw)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.ApprovalLink{RequesterID: "1", ApproverID: "1"})
	require.ErrorIs(t, err, validation.ErrValidationFailed)
	assert.Equal(t, "o aprovador deve ser diferente do solicitante", validation.Message(err))
	assert.Zero(t, b.count("/webhook/approval-links#create"))

	link, err := svc.Create(ctx, models.ApprovalLink{RequesterID: "1", ApproverID: "2"})
	require.NoError(t, err)
	assert.Equal(t, models.ID("10"), link.ID)

	_, err = svc.Create(ctx, models.ApprovalLink{RequesterID: "3", ApproverID: "2"})
	assert.Equal(t, "Já existe um vínculo de aprovação para este solicitante.", gateway.BusinessMessage(err, "falhou"))

	require.NoError(t, svc.Delete(ctx, "10"))
	assert.Equal(t, "10", b.last("/webhook/approval-links#delete").Body["id"])
}

type countingLookups struct {
	LookupService
	calls atomic.Int32
	err   error
}

func (c *countingLookups) Contacts(ctx context.Context, search string) ([]models.Contact, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []models.Contact{{ID: "1", Name: search}}, nil
}

func TestCustomerSearch_Debounce(t *testing.T) {
	lookups := &countingLookups{}
	search := NewCustomerSearch(lookups, 50*time.Millisecond)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 3)
	var last []models.Contact
	for i, term := range []string{"a", "an", "ana"} {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			got, err := search.Search(ctx, term)
			results[i] = err
			if err == nil {
				last = got
			}
		}(i, term)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	assert.ErrorIs(t, results[0], ErrSuperseded)
	assert.ErrorIs(t, results[1], ErrSuperseded)
	require.NoError(t, results[2])
	assert.Equal(t, "ana", last[0].Name)
	assert.EqualValues(t, 1, lookups.calls.Load())
}

func TestCustomerSearch_ContextCancelled(t *testing.T) {
	lookups := &countingLookups{}
	search := NewCustomerSearch(lookups, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := search.Search(ctx, "ana")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, lookups.calls.Load())
}

func TestCustomerSearch_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	search := NewCustomerSearch(&countingLookups{err: boom}, 0)
	_, err := search.Search(context.Background(), "ana")
	assert.ErrorIs(t, err, boom)
}

func TestWorkspaces(t *testing.T) {
	_, gw := newBackend(t)
	ws := NewWorkspaces(gw, NewLookupService(gw), WorkspaceOptions{TTL: time.Minute, Now: fixedNow})

	a := ws.Get("s1")
	assert.Same(t, a, ws.Get("s1"))
	assert.NotSame(t, a, ws.Get("s2"))
	assert.Equal(t, 2, ws.Count())

	for _, name := range []string{ScreenPayables, ScreenReceivables, ScreenAppointments, ScreenProcessedAppointments, ScreenPaymentRequests} {
		s, err := a.Screen(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	_, err := a.Screen("nope")
	assert.ErrorIs(t, err, ErrUnknownScreen)

	v := a.screens[ScreenPayables].View(context.Background())
	assert.Equal(t, "2025-07-01", v.Criteria.Start.Format("2006-01-02"))
	assert.Equal(t, "2025-07-31", v.Criteria.End.Format("2006-01-02"))

	ws.Drop("s1")
	assert.NotSame(t, a, ws.Get("s1"))
}
