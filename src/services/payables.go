package services

import (
	"context"
	"encoding/json"
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
)

const (
	ScreenPayables = "payables"

	payablesURI = "contas-pagar"
	// The payables screen loads every page of the range and pages locally.
	transactionsPageSize = 200
	transactionsMaxPages = 50
)

type PayableRow struct {
	models.PayableTitle
	StatusBadge approval.Badge `json:"status_badge"`
	AmountLabel string         `json:"amount_label"`
	DueLabel    string         `json:"due_label"`
}

// fetchAllTransactions walks account_trans/paginate_apr until count is reached.
func fetchAllTransactions[T any](ctx context.Context, gw *gateway.Client, base gateway.TransactionQuery) ([]T, int, error) {
	all := []T{}
	total := 0
	base.PageSize = transactionsPageSize
	for page := 1; page <= transactionsMaxPages; page++ {
		base.PageNumber = page
		tp, err := gw.PaginateTransactions(ctx, base)
		if err != nil {
			return nil, 0, err
		}
		rows, _, err := decodeList[T](tp.Rows)
		if err != nil {
			return nil, 0, err
		}
		all = append(all, rows...)
		total = tp.Count
		if len(rows) == 0 || len(all) >= tp.Count {
			return all, total, nil
		}
	}
	logger.FromContext(ctx).Warn("Transaction listing truncated at page limit",
		"type", base.Type, "pages", transactionsMaxPages, "loaded", len(all), "count", total)
	return all, total, nil
}

// processedMarkers lists what a webhook reports as already handled in the range.
func processedMarkers(gw *gateway.Client, uri, endpoint string) reconcile.MarkerSource {
	return func(ctx context.Context, q reconcile.Query) ([]string, error) {
		var raw json.RawMessage
		err := gw.Webhook(ctx, uri, endpoint, map[string]any{
			"start_date": dateParam(q.Start),
			"end_date":   dateParam(q.End),
		}, &raw)
		if err != nil {
			return nil, err
		}
		markers, _, err := decodeList[models.ProcessedMarker](raw)
		if err != nil {
			return nil, err
		}
		return reconcile.MarkerKeys(markers), nil
	}
}

func newPayablesScreen(gw *gateway.Client, initial controller.Criteria, pageSize int, now func() time.Time) *screen[models.PayableTitle] {
	primary := func(ctx context.Context, q reconcile.Query) (reconcile.Page[models.PayableTitle], error) {
		items, total, err := fetchAllTransactions[models.PayableTitle](ctx, gw, gateway.TransactionQuery{
			StartDate: dateParam(q.Start),
			EndDate:   dateParam(q.End),
			Type:      "ap",
			SortBy:    q.SortField,
			SortDir:   q.SortDir,
		})
		if err != nil {
			return reconcile.Page[models.PayableTitle]{}, err
		}
		return reconcile.Page[models.PayableTitle]{Items: items, Total: total}, nil
	}
	engine := reconcile.New(ScreenPayables, primary, processedMarkers(gw, payablesURI, "list_paid"))

	ctrl := controller.New(ScreenPayables, engine.GetActionable, initial, controller.Options[models.PayableTitle]{
		Mode:              controller.ModeClient,
		PageSize:          pageSize,
		LocalCounterparty: true,
		Compare:           comparePayables,
	})

	pay := dispatch.Action[models.PayableTitle]{
		Kind: dispatch.KindPay,
		Validate: func(items []models.PayableTitle) error {
			for _, it := range items {
				if it.Status == models.PayablePaid {
					return fmt.Errorf("O título %s já está pago.", it.ID)
				}
			}
			return nil
		},
		Send: func(ctx context.Context, items []models.PayableTitle, extra map[string]any) error {
			titulos := make([]map[string]any, len(items))
			for i, it := range items {
				titulos[i] = map[string]any{
					"id":            it.ID,
					"freelancer_id": it.FreelancerID,
					"amount":        it.Amount,
					"due_date":      it.DueDate,
				}
			}
			body := withExtra(map[string]any{"titulos": titulos}, extra)
			return gw.Webhook(ctx, payablesURI, "pay", body, nil)
		},
	}

	return &screen[models.PayableTitle]{
		name:  ScreenPayables,
		ctrl:  ctrl,
		disp:  dispatch.New[models.PayableTitle](ctrl, pay),
		kinds: []dispatch.Kind{dispatch.KindPay},
		annotate: func(t models.PayableTitle, today time.Time) any {
			return PayableRow{
				PayableTitle: t,
				StatusBadge:  approval.PayableBadge(t.Status),
				AmountLabel:  format.Currency(t.Amount),
				DueLabel:     format.Date(t.DueDate.Time),
			}
		},
		amount: func(t models.PayableTitle) models.Amount { return t.Amount },
		columns: []Column[models.PayableTitle]{
			{Header: "ID", Value: func(t models.PayableTitle) any { return string(t.ID) }},
			{Header: "Descrição", Value: func(t models.PayableTitle) any { return t.Description }},
			{Header: "Freelancer", Value: func(t models.PayableTitle) any { return t.FreelancerName }},
			{Header: "Emissão", Value: func(t models.PayableTitle) any { return format.Date(t.EmissionDate.Time) }},
			{Header: "Vencimento", Value: func(t models.PayableTitle) any { return format.Date(t.DueDate.Time) }},
			{Header: "Valor", Value: func(t models.PayableTitle) any { return amountCell(t.Amount) }},
			{Header: "Status", Value: func(t models.PayableTitle) any { return approval.PayableBadge(t.Status).Label }},
		},
		now: now,
	}
}

func comparePayables(field string, a, b models.PayableTitle) int {
	switch field {
	case "amount":
		return a.Amount.Value.Cmp(b.Amount.Value)
	case "emission_date":
		return a.EmissionDate.Compare(b.EmissionDate.Time)
	case "freelancer_name":
		return strings.Compare(format.Fold(a.FreelancerName), format.Fold(b.FreelancerName))
	case "description":
		return strings.Compare(format.Fold(a.Description), format.Fold(b.Description))
	default:
		return a.DueDate.Compare(b.DueDate.Time)
	}
}

// withExtra adds the caller's extra fields without overriding the batch.
func withExtra(body map[string]any, extra map[string]any) map[string]any {
	for k, v := range extra {
		if _, taken := body[k]; !taken {
			body[k] = v
		}
	}
	return body
}

// amountCell returns a numeric cell when possible.
func amountCell(a models.Amount) any {
	if !a.Valid {
		return format.Missing
	}
	f, _ := a.Value.Float64()
	return f
}
