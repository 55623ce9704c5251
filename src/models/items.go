package models

import "strings"

// WorkItem is anything a screen lists and acts upon. The id is stable across
// refetches and is the only key used for selection and processed-set membership.
type WorkItem interface {
	ItemID() string
}

// Counterparty is implemented by items that can be filtered by freelancer or customer.
type Counterparty interface {
	CounterpartyID() string
}

// Searchable returns the text matched by the free-text search box.
type Searchable interface {
	SearchText() string
}

// Dated exposes the date used for range filtering.
type Dated interface {
	FilterDate() Date
}

// PayableTitle is an accounts-payable transaction (type "ap").
type PayableTitle struct {
	ID             ID            `json:"id"`
	Description    string        `json:"description"`
	FreelancerID   ID            `json:"freelancer_id"`
	FreelancerName string        `json:"freelancer_name"`
	EmissionDate   Date          `json:"emission_date"`
	DueDate        Date          `json:"due_date"`
	Amount         Amount        `json:"amount"`
	Status         PayableStatus `json:"status"`
	DocType        string        `json:"doc_type,omitempty"`
	ClassID        ID            `json:"class_id,omitempty"`
}

func (t PayableTitle) ItemID() string         { return string(t.ID) }
func (t PayableTitle) CounterpartyID() string { return string(t.FreelancerID) }
func (t PayableTitle) FilterDate() Date       { return t.DueDate }
func (t PayableTitle) SearchText() string {
	return strings.Join([]string{t.Description, t.FreelancerName, string(t.ID)}, " ")
}

// ReceivableTitle is an accounts-receivable transaction (type "ar").
type ReceivableTitle struct {
	ID           ID     `json:"id"`
	Description  string `json:"description"`
	DocNumber    string `json:"doc_number"`
	CustomerID   ID     `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	EmissionDate Date   `json:"emission_date"`
	DueDate      Date   `json:"due_date"`
	Amount       Amount `json:"amount"`
	PaymentType  string `json:"payment_type,omitempty"`
}

func (t ReceivableTitle) ItemID() string         { return string(t.ID) }
func (t ReceivableTitle) CounterpartyID() string { return string(t.CustomerID) }
func (t ReceivableTitle) FilterDate() Date       { return t.DueDate }
func (t ReceivableTitle) SearchText() string {
	return strings.Join([]string{t.Description, t.DocNumber, t.CustomerName, string(t.ID)}, " ")
}

// Appointment is a scheduled job whose accounts can be cleared once processed.
type Appointment struct {
	ID           ID                `json:"id"`
	OrderID      ID                `json:"order_id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	CustomerName string            `json:"customer_name"`
	FreelancerID ID                `json:"freelancer_id"`
	Start        Date              `json:"start_date"`
	End          Date              `json:"end_date"`
	Status       AppointmentStatus `json:"status"`
	Amount       Amount            `json:"amount"`
}

func (a Appointment) ItemID() string         { return string(a.ID) }
func (a Appointment) CounterpartyID() string { return string(a.FreelancerID) }
func (a Appointment) FilterDate() Date       { return a.Start }
func (a Appointment) SearchText() string {
	return strings.Join([]string{a.Name, a.Type, a.CustomerName, string(a.OrderID)}, " ")
}

// PaymentRequest is an internal request for payment that goes through a
// department approval and a director approval.
type PaymentRequest struct {
	ID                 ID             `json:"id"`
	Requester          string         `json:"requester"`
	RequesterPhone     string         `json:"requester_phone,omitempty"`
	Description        string         `json:"description"`
	FreelancerID       ID             `json:"freelancer_id,omitempty"`
	FreelancerName     string         `json:"freelancer_name,omitempty"`
	PaymentTypeID      ID             `json:"payment_type_id,omitempty"`
	DueDate            Date           `json:"due_date"`
	Amount             Amount         `json:"amount"`
	ApprovedDepartment ApprovalStatus `json:"approved_department"`
	ApprovedDirector   ApprovalStatus `json:"approved_director"`
	CreatedAt          Date           `json:"created_at"`
}

func (r PaymentRequest) ItemID() string         { return string(r.ID) }
func (r PaymentRequest) CounterpartyID() string { return string(r.FreelancerID) }
func (r PaymentRequest) FilterDate() Date       { return r.DueDate }
func (r PaymentRequest) SearchText() string {
	return strings.Join([]string{r.Requester, r.Description, r.FreelancerName}, " ")
}

// ProcessedMarker flags a work item as already handled. Depending on the
// backend the reference is the item id itself or an id_titulo foreign key.
type ProcessedMarker struct {
	ID       ID `json:"id"`
	TituloID ID `json:"id_titulo"`
}

func (m ProcessedMarker) Key() string {
	if m.TituloID != "" {
		return string(m.TituloID)
	}
	return string(m.ID)
}

// ProcessedAppointment is a row of the processed-appointments listing.
type ProcessedAppointment struct {
	ID          ID     `json:"id"`
	OrderID     ID     `json:"order_id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	TypeEvent   string `json:"type_event"`
	ProcessedAt Date   `json:"processed_at"`
}

func (p ProcessedAppointment) ItemID() string { return string(p.ID) }
