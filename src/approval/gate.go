// Package approval maps approval and status fields to badges and to the
// actions a user may take on an item. Everything here is pure.
package approval

import (
	"fmt"
	"time"

	"github.com/username/backoffice/backend/src/models"
)

// Variant is the visual style of a badge.
type Variant string

const (
	Success     Variant = "success"
	Destructive Variant = "destructive"
	Secondary   Variant = "secondary"
	Outline     Variant = "outline"
)

type Badge struct {
	Label   string  `json:"label"`
	Variant Variant `json:"variant"`
}

// Permissions are the actions enabled for a payment request.
type Permissions struct {
	CanDelete         bool `json:"can_delete"`
	CanEdit           bool `json:"can_edit"`
	CanSendToDirector bool `json:"can_send_to_director"`
	CanSendToSystem   bool `json:"can_send_to_system"`
}

func StatusBadge(s models.ApprovalStatus) Badge {
	switch s {
	case models.Approved:
		return Badge{Label: "Aprovado", Variant: Success}
	case models.Reproved:
		return Badge{Label: "Reprovado", Variant: Destructive}
	default:
		return Badge{Label: "Pendente", Variant: Secondary}
	}
}

// Evaluate derives the permissions from the department and director approvals.
func Evaluate(department, director models.ApprovalStatus) Permissions {
	untouched := department == models.Pending && director == models.Pending
	return Permissions{
		CanDelete:         untouched,
		CanEdit:           untouched,
		CanSendToDirector: department == models.Approved && director == models.Pending,
		CanSendToSystem:   department == models.Approved,
	}
}

// EvaluateRaw is Evaluate for the raw strings found in payloads.
func EvaluateRaw(department, director string) Permissions {
	return Evaluate(models.ParseApprovalStatus(department), models.ParseApprovalStatus(director))
}

var appointmentLabels = map[models.AppointmentStatus]string{
	models.AppointmentConfirmed:   "Confirmado",
	models.AppointmentScheduled:   "Agendado",
	models.AppointmentOngoing:     "Em andamento",
	models.AppointmentRescheduled: "Reagendado",
	models.AppointmentCompleted:   "Concluído",
	models.AppointmentCancelled:   "Cancelado",
}

// AppointmentLabel translates an appointment status for display. No gating is attached.
func AppointmentLabel(s models.AppointmentStatus) string {
	if label, ok := appointmentLabels[s]; ok {
		return label
	}
	return "Desconhecido"
}

func PayableBadge(s models.PayableStatus) Badge {
	if s == models.PayablePaid {
		return Badge{Label: "Pago", Variant: Success}
	}
	return Badge{Label: "Pendente", Variant: Outline}
}

// DaysUntil counts calendar days from today to due, ignoring the time of day.
func DaysUntil(due, today time.Time) int {
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(t).Hours() / 24)
}

// DueBucket classifies a receivable by the distance between its due date and today.
func DueBucket(due, today time.Time) Badge {
	days := DaysUntil(due, today)
	switch {
	case days < 0:
		return Badge{Label: "Vencido", Variant: Destructive}
	case days == 0:
		return Badge{Label: "Vence hoje", Variant: Secondary}
	case days <= 5:
		return Badge{Label: fmt.Sprintf("%d dias", days), Variant: Outline}
	default:
		return Badge{Label: "No prazo", Variant: Success}
	}
}
