package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/username/backoffice/backend/src/models"
)

// ProcessedQuery is the body of the processed-appointments listing.
type ProcessedQuery struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	Status    string `json:"status"`
	TypeEvent string `json:"type_event"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type ProcessedPage struct {
	Success    bool                          `json:"success"`
	Data       []models.ProcessedAppointment `json:"data"`
	Pagination Pagination                    `json:"pagination"`
}

// Processed lists appointments that were already cleared.
func (c *Client) Processed(ctx context.Context, q ProcessedQuery) (ProcessedPage, error) {
	var page ProcessedPage
	raw, err := c.Call(ctx, Request{Family: FamilyProcessed, Endpoint: "scheduling/processed", Payload: q})
	if err != nil {
		return page, err
	}
	if err := decode(raw, &page); err != nil {
		return page, err
	}
	if page.Data == nil {
		page.Data = []models.ProcessedAppointment{}
	}
	return page, nil
}

// Banks fetches the public bank directory. It is unauthenticated.
func (c *Client) Banks(ctx context.Context) ([]models.Bank, error) {
	raw, err := c.Call(ctx, Request{Family: FamilyBankDirectory, Endpoint: "banks", Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	banks := []models.Bank{}
	if err := decode(raw, &banks); err != nil {
		return nil, err
	}
	return banks, nil
}

// TransactionQuery is the body of account_trans/paginate_apr.
type TransactionQuery struct {
	PageNumber int    `json:"pageNumber"`
	PageSize   int    `json:"pageSize"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Type       string `json:"type"`
	ClassID    string `json:"class_id"`
	DocType    string `json:"doc_type"`
	CustomerID string `json:"customer_id"`
	GroupBy    string `json:"groupBy"`
	Period     string `json:"period"`
	CSVMode    bool   `json:"csv_mode"`
	SortBy     string `json:"sortBy"`
	SortDir    string `json:"sortDir"`
}

// TransactionPage is the {rows, count} answer; rows are decoded by the caller.
type TransactionPage struct {
	Rows  json.RawMessage `json:"rows"`
	Count int             `json:"count"`
}

func (c *Client) PaginateTransactions(ctx context.Context, q TransactionQuery) (TransactionPage, error) {
	var page TransactionPage
	err := c.CRM(ctx, "account_trans/paginate_apr", q, &page)
	return page, err
}

// LoginResult is what the automation backend answers to a successful login.
type LoginResult struct {
	User        json.RawMessage `json:"user"`
	Token       string          `json:"token"`
	TokenAlboom string          `json:"tokenAlboom"`
}

// Login authenticates against the automation backend. It runs before a session
// exists, so the tokens sent are empty.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res LoginResult
	err := c.Webhook(ctx, "auth", "login", map[string]string{"email": email, "password": password}, &res)
	return res, err
}
