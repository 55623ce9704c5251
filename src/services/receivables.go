package services

import (
	"context"
	"time"

	"github.com/username/backoffice/backend/src/approval"
	"github.com/username/backoffice/backend/src/controller"
	"github.com/username/backoffice/backend/src/dispatch"
	"github.com/username/backoffice/backend/src/format"
	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/reconcile"
)

const (
	ScreenReceivables = "receivables"

	receivablesURI = "contas-receber"
)

type ReceivableRow struct {
	models.ReceivableTitle
	DueBadge    approval.Badge `json:"due_badge"`
	DaysLeft    int            `json:"days_left"`
	AmountLabel string         `json:"amount_label"`
	DueLabel    string         `json:"due_label"`
}

func newReceivablesScreen(gw *gateway.Client, initial controller.Criteria, pageSize int, now func() time.Time) *screen[models.ReceivableTitle] {
	primary := func(ctx context.Context, q reconcile.Query) (reconcile.Page[models.ReceivableTitle], error) {
		tp, err := gw.PaginateTransactions(ctx, gateway.TransactionQuery{
			PageNumber: q.Page,
			PageSize:   q.Limit,
			StartDate:  dateParam(q.Start),
			EndDate:    dateParam(q.End),
			Type:       "ar",
			CustomerID: q.CounterpartyID,
			SortBy:     q.SortField,
			SortDir:    q.SortDir,
		})
		if err != nil {
			return reconcile.Page[models.ReceivableTitle]{}, err
		}
		rows, _, err := decodeList[models.ReceivableTitle](tp.Rows)
		if err != nil {
			return reconcile.Page[models.ReceivableTitle]{}, err
		}
		return reconcile.Page[models.ReceivableTitle]{Items: rows, Total: tp.Count}, nil
	}
	engine := reconcile.New(ScreenReceivables, primary, processedMarkers(gw, receivablesURI, "list_processed"))

	ctrl := controller.New(ScreenReceivables, engine.GetActionable, initial, controller.Options[models.ReceivableTitle]{
		Mode:     controller.ModeServer,
		PageSize: pageSize,
	})

	process := dispatch.Action[models.ReceivableTitle]{
		Kind: dispatch.KindProcess,
		Send: func(ctx context.Context, items []models.ReceivableTitle, extra map[string]any) error {
			titulos := make([]map[string]any, len(items))
			for i, it := range items {
				titulos[i] = map[string]any{
					"id":          it.ID,
					"customer_id": it.CustomerID,
					"doc_number":  it.DocNumber,
					"amount":      it.Amount,
					"due_date":    it.DueDate,
				}
			}
			return gw.Webhook(ctx, receivablesURI, "process", withExtra(map[string]any{"titulos": titulos}, extra), nil)
		},
	}

	return &screen[models.ReceivableTitle]{
		name:  ScreenReceivables,
		ctrl:  ctrl,
		disp:  dispatch.New[models.ReceivableTitle](ctrl, process),
		kinds: []dispatch.Kind{dispatch.KindProcess},
		annotate: func(t models.ReceivableTitle, today time.Time) any {
			return ReceivableRow{
				ReceivableTitle: t,
				DueBadge:        approval.DueBucket(t.DueDate.Time, today),
				DaysLeft:        approval.DaysUntil(t.DueDate.Time, today),
				AmountLabel:     format.Currency(t.Amount),
				DueLabel:        format.Date(t.DueDate.Time),
			}
		},
		amount: func(t models.ReceivableTitle) models.Amount { return t.Amount },
		columns: []Column[models.ReceivableTitle]{
			{Header: "ID", Value: func(t models.ReceivableTitle) any { return string(t.ID) }},
			{Header: "Documento", Value: func(t models.ReceivableTitle) any { return t.DocNumber }},
			{Header: "Cliente", Value: func(t models.ReceivableTitle) any { return t.CustomerName }},
			{Header: "Descrição", Value: func(t models.ReceivableTitle) any { return t.Description }},
			{Header: "Vencimento", Value: func(t models.ReceivableTitle) any { return format.Date(t.DueDate.Time) }},
			{Header: "Valor", Value: func(t models.ReceivableTitle) any { return amountCell(t.Amount) }},
		},
		now: now,
	}
}
