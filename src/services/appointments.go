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
	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/reconcile"
)

const (
	ScreenAppointments          = "appointments"
	ScreenProcessedAppointments = "appointments-processed"

	processedPageSize = 500
	processedMaxPages = 20
)

type AppointmentRow struct {
	models.Appointment
	StatusLabel string `json:"status_label"`
	AmountLabel string `json:"amount_label"`
	StartLabel  string `json:"start_label"`
}

type ProcessedAppointmentRow struct {
	models.ProcessedAppointment
	StatusLabel    string `json:"status_label"`
	ProcessedLabel string `json:"processed_label"`
}

type agendamento struct {
	ID      models.ID `json:"id"`
	OrderID models.ID `json:"order_id"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
}

// processedAppointmentKeys walks every page of the processed listing for the range.
func processedAppointmentKeys(gw *gateway.Client) reconcile.MarkerSource {
	return func(ctx context.Context, q reconcile.Query) ([]string, error) {
		keys := []string{}
		for page := 1; page <= processedMaxPages; page++ {
			res, err := gw.Processed(ctx, gateway.ProcessedQuery{
				Page:      page,
				Limit:     processedPageSize,
				StartDate: dateParam(q.Start),
				EndDate:   dateParam(q.End),
			})
			if err != nil {
				return nil, err
			}
			for _, p := range res.Data {
				keys = append(keys, string(p.ID))
			}
			if len(res.Data) == 0 || page >= res.Pagination.TotalPages {
				break
			}
		}
		return keys, nil
	}
}

func newAppointmentsScreen(gw *gateway.Client, initial controller.Criteria, pageSize int, now func() time.Time) *screen[models.Appointment] {
	primary := func(ctx context.Context, q reconcile.Query) (reconcile.Page[models.Appointment], error) {
		var raw json.RawMessage
		err := gw.CRM(ctx, "schedules/list", map[string]any{
			"start_date": dateParam(q.Start),
			"end_date":   dateParam(q.End),
			"status":     q.Status,
			"sortBy":     q.SortField,
			"sortDir":    q.SortDir,
		}, &raw)
		if err != nil {
			return reconcile.Page[models.Appointment]{}, err
		}
		items, total, err := decodeList[models.Appointment](raw)
		if err != nil {
			return reconcile.Page[models.Appointment]{}, err
		}
		return reconcile.Page[models.Appointment]{Items: items, Total: total}, nil
	}
	engine := reconcile.New(ScreenAppointments, primary, processedAppointmentKeys(gw))

	ctrl := controller.New(ScreenAppointments, engine.GetActionable, initial, controller.Options[models.Appointment]{
		Mode:              controller.ModeClient,
		PageSize:          pageSize,
		LocalCounterparty: true,
		Compare:           compareAppointments,
	})

	process := dispatch.Action[models.Appointment]{
		Kind: dispatch.KindProcess,
		Validate: func(items []models.Appointment) error {
			for _, it := range items {
				if it.Status == models.AppointmentCancelled {
					return fmt.Errorf("O agendamento %s está cancelado e não pode ser processado.", it.Name)
				}
			}
			return nil
		},
		Send: func(ctx context.Context, items []models.Appointment, extra map[string]any) error {
			batch := make([]agendamento, len(items))
			for i, it := range items {
				batch[i] = agendamento{ID: it.ID, OrderID: it.OrderID, Name: it.Name, Type: it.Type}
			}
			return gw.Webhook(ctx, "scheduling/clear_accounts", "clear_accounts", map[string]any{"Agendamento": batch}, nil)
		},
	}

	return &screen[models.Appointment]{
		name:  ScreenAppointments,
		ctrl:  ctrl,
		disp:  dispatch.New[models.Appointment](ctrl, process),
		kinds: []dispatch.Kind{dispatch.KindProcess},
		annotate: func(a models.Appointment, _ time.Time) any {
			return AppointmentRow{
				Appointment: a,
				StatusLabel: approval.AppointmentLabel(a.Status),
				AmountLabel: format.Currency(a.Amount),
				StartLabel:  format.Date(a.Start.Time),
			}
		},
		amount: func(a models.Appointment) models.Amount { return a.Amount },
		columns: []Column[models.Appointment]{
			{Header: "ID", Value: func(a models.Appointment) any { return string(a.ID) }},
			{Header: "Pedido", Value: func(a models.Appointment) any { return string(a.OrderID) }},
			{Header: "Nome", Value: func(a models.Appointment) any { return a.Name }},
			{Header: "Tipo", Value: func(a models.Appointment) any { return a.Type }},
			{Header: "Cliente", Value: func(a models.Appointment) any { return a.CustomerName }},
			{Header: "Início", Value: func(a models.Appointment) any { return format.Date(a.Start.Time) }},
			{Header: "Status", Value: func(a models.Appointment) any { return approval.AppointmentLabel(a.Status) }},
			{Header: "Valor", Value: func(a models.Appointment) any { return amountCell(a.Amount) }},
		},
		now: now,
	}
}

func compareAppointments(field string, a, b models.Appointment) int {
	switch field {
	case "name":
		return strings.Compare(format.Fold(a.Name), format.Fold(b.Name))
	case "status":
		return int(a.Status) - int(b.Status)
	case "amount":
		return a.Amount.Value.Cmp(b.Amount.Value)
	default:
		return a.Start.Compare(b.Start.Time)
	}
}

func newProcessedAppointmentsScreen(gw *gateway.Client, initial controller.Criteria, pageSize int, now func() time.Time) *screen[models.ProcessedAppointment] {
	primary := func(ctx context.Context, q reconcile.Query) (reconcile.Page[models.ProcessedAppointment], error) {
		res, err := gw.Processed(ctx, gateway.ProcessedQuery{
			Page:      q.Page,
			Limit:     q.Limit,
			Status:    q.Status,
			TypeEvent: q.Type,
			StartDate: dateParam(q.Start),
			EndDate:   dateParam(q.End),
		})
		if err != nil {
			return reconcile.Page[models.ProcessedAppointment]{}, err
		}
		return reconcile.Page[models.ProcessedAppointment]{Items: res.Data, Total: res.Pagination.Total}, nil
	}
	engine := reconcile.New(ScreenProcessedAppointments, primary, nil)

	ctrl := controller.New(ScreenProcessedAppointments, engine.GetActionable, initial, controller.Options[models.ProcessedAppointment]{
		Mode:     controller.ModeServer,
		PageSize: pageSize,
	})

	reprocess := dispatch.Action[models.ProcessedAppointment]{
		Kind: dispatch.KindReprocess,
		Send: func(ctx context.Context, items []models.ProcessedAppointment, extra map[string]any) error {
			batch := make([]agendamento, len(items))
			for i, it := range items {
				batch[i] = agendamento{ID: it.ID, OrderID: it.OrderID, Name: it.Name, Type: it.Type}
			}
			return gw.Webhook(ctx, "scheduling/reprocess", "reprocess", map[string]any{"Agendamento": batch}, nil)
		},
	}

	return &screen[models.ProcessedAppointment]{
		name:  ScreenProcessedAppointments,
		ctrl:  ctrl,
		disp:  dispatch.New[models.ProcessedAppointment](ctrl, reprocess),
		kinds: []dispatch.Kind{dispatch.KindReprocess},
		annotate: func(p models.ProcessedAppointment, _ time.Time) any {
			return ProcessedAppointmentRow{
				ProcessedAppointment: p,
				StatusLabel:          approval.AppointmentLabel(models.ParseAppointmentStatus(p.Status)),
				ProcessedLabel:       format.Date(p.ProcessedAt.Time),
			}
		},
		columns: []Column[models.ProcessedAppointment]{
			{Header: "ID", Value: func(p models.ProcessedAppointment) any { return string(p.ID) }},
			{Header: "Pedido", Value: func(p models.ProcessedAppointment) any { return string(p.OrderID) }},
			{Header: "Nome", Value: func(p models.ProcessedAppointment) any { return p.Name }},
			{Header: "Tipo", Value: func(p models.ProcessedAppointment) any { return p.Type }},
			{Header: "Evento", Value: func(p models.ProcessedAppointment) any { return p.TypeEvent }},
			{Header: "Processado em", Value: func(p models.ProcessedAppointment) any { return format.Date(p.ProcessedAt.Time) }},
		},
		now: now,
	}
}
