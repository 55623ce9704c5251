package models

import (
	"encoding/json"
	"strings"
)

// ApprovalStatus is the closed set of approval states of a payment request.
type ApprovalStatus int

const (
	Pending ApprovalStatus = iota
	Approved
	Reproved
)

// ParseApprovalStatus maps any unknown or empty value to Pending so that a
// malformed payload can never unlock an approved-only action.
func ParseApprovalStatus(s string) ApprovalStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APPROVED":
		return Approved
	case "REPROVED":
		return Reproved
	default:
		return Pending
	}
}

func (s ApprovalStatus) String() string {
	switch s {
	case Approved:
		return "APPROVED"
	case Reproved:
		return "REPROVED"
	default:
		return "PENDING"
	}
}

func (s ApprovalStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ApprovalStatus) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = Pending
		return nil
	}
	str, _ := raw.(string)
	*s = ParseApprovalStatus(str)
	return nil
}

// AppointmentStatus is the lifecycle of a scheduled job.
type AppointmentStatus int

const (
	AppointmentUnknown AppointmentStatus = iota
	AppointmentConfirmed
	AppointmentScheduled
	AppointmentOngoing
	AppointmentRescheduled
	AppointmentCompleted
	AppointmentCancelled
)

var appointmentStatusNames = map[AppointmentStatus]string{
	AppointmentConfirmed:   "Confirmed",
	AppointmentScheduled:   "Scheduled",
	AppointmentOngoing:     "On going",
	AppointmentRescheduled: "Rescheduled",
	AppointmentCompleted:   "Completed",
	AppointmentCancelled:   "Cancelled",
}

func ParseAppointmentStatus(s string) AppointmentStatus {
	norm := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for status, name := range appointmentStatusNames {
		if strings.ToLower(name) == norm {
			return status
		}
	}
	if norm == "ongoing" {
		return AppointmentOngoing
	}
	return AppointmentUnknown
}

func (s AppointmentStatus) String() string {
	if name, ok := appointmentStatusNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s AppointmentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *AppointmentStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		*s = AppointmentUnknown
		return nil
	}
	*s = ParseAppointmentStatus(str)
	return nil
}

// PayableStatus is the implicit pending/paid binary of a payable title.
type PayableStatus int

const (
	PayablePending PayableStatus = iota
	PayablePaid
)

func ParsePayableStatus(s string) PayableStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid", "pago", "1", "true":
		return PayablePaid
	default:
		return PayablePending
	}
}

func (s PayableStatus) String() string {
	if s == PayablePaid {
		return "paid"
	}
	return "pending"
}

func (s PayableStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PayableStatus) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = PayablePending
		return nil
	}
	switch v := raw.(type) {
	case string:
		*s = ParsePayableStatus(v)
	case bool:
		if v {
			*s = PayablePaid
		} else {
			*s = PayablePending
		}
	case float64:
		if v == 1 {
			*s = PayablePaid
		} else {
			*s = PayablePending
		}
	default:
		*s = PayablePending
	}
	return nil
}
