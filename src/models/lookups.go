package models

// Contact is a CRM contact (customer).
type Contact struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

// Freelancer is a supplier paid through accounts payable.
type Freelancer struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Document string `json:"document,omitempty"`
	BankCode string `json:"bank_code,omitempty"`
	PixKey   string `json:"pix_key,omitempty"`
}

type PaymentType struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// BankAccountBank is the tenant's own bank entry in the CRM.
type BankAccountBank struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Bank is one entry of the public bank directory.
type Bank struct {
	ISPB     string `json:"ispb"`
	Name     string `json:"name"`
	Code     *int   `json:"code"`
	FullName string `json:"fullName"`
}

// WhatsAppUser is a phone number allowed to talk to the approval bot.
type WhatsAppUser struct {
	ID         ID     `json:"id,omitempty"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Department string `json:"department,omitempty"`
	Role       string `json:"role,omitempty"`
}

// ApprovalLink binds a requester to the approver who must sign off their requests.
type ApprovalLink struct {
	ID          ID     `json:"id,omitempty"`
	RequesterID ID     `json:"requester_id"`
	ApproverID  ID     `json:"approver_id"`
	Level       string `json:"level,omitempty"`
}
