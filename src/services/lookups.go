package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/username/backoffice/backend/src/format"
	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/models"
)

// BankEntry is a bank of the public directory with its display code.
type BankEntry struct {
	ISPB     string `json:"ispb"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
}

type lookupServiceImpl struct {
	gw *gateway.Client
}

func NewLookupService(gw *gateway.Client) LookupService {
	return &lookupServiceImpl{gw: gw}
}

func crmList[T any](ctx context.Context, gw *gateway.Client, path string, payload any) ([]T, error) {
	var raw json.RawMessage
	if err := gw.CRM(ctx, path, payload, &raw); err != nil {
		return nil, err
	}
	items, _, err := decodeList[T](raw)
	return items, err
}

func (s *lookupServiceImpl) Contacts(ctx context.Context, search string) ([]models.Contact, error) {
	return crmList[models.Contact](ctx, s.gw, "contacts/list", map[string]any{"search": strings.TrimSpace(search)})
}

func (s *lookupServiceImpl) Freelancers(ctx context.Context) ([]models.Freelancer, error) {
	return crmList[models.Freelancer](ctx, s.gw, "freelancers/list", nil)
}

func (s *lookupServiceImpl) PaymentTypes(ctx context.Context) ([]models.PaymentType, error) {
	return crmList[models.PaymentType](ctx, s.gw, "payment_types/list", nil)
}

func (s *lookupServiceImpl) BankAccounts(ctx context.Context) ([]models.BankAccountBank, error) {
	return crmList[models.BankAccountBank](ctx, s.gw, "banks/list", nil)
}

// BankDirectory lists the public bank directory filtered by code or name.
func (s *lookupServiceImpl) BankDirectory(ctx context.Context, query string) ([]BankEntry, error) {
	banks, err := s.gw.Banks(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	out := make([]BankEntry, 0, len(banks))
	for _, b := range banks {
		e := BankEntry{ISPB: b.ISPB, Code: format.BankCode(b.Code), Name: b.Name, FullName: b.FullName}
		if query != "" && !strings.Contains(e.Code, query) && !format.Contains(e.Name, query) && !format.Contains(e.FullName, query) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
