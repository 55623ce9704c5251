package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/security/validation"
)

const approvalLinksURI = "approval-links"

type approvalLinkServiceImpl struct {
	gw *gateway.Client
}

func NewApprovalLinkService(gw *gateway.Client) ApprovalLinkService {
	return &approvalLinkServiceImpl{gw: gw}
}

func (s *approvalLinkServiceImpl) List(ctx context.Context) ([]models.ApprovalLink, error) {
	var raw json.RawMessage
	if err := s.gw.Webhook(ctx, approvalLinksURI, "list", nil, &raw); err != nil {
		return nil, err
	}
	links, _, err := decodeList[models.ApprovalLink](raw)
	return links, err
}

// Create links a requester to an approver. Nobody approves their own requests.
func (s *approvalLinkServiceImpl) Create(ctx context.Context, l models.ApprovalLink) (models.ApprovalLink, error) {
	if err := validation.ValidateStringNotEmpty(string(l.RequesterID), "solicitante"); err != nil {
		return l, err
	}
	if err := validation.ValidateStringNotEmpty(string(l.ApproverID), "aprovador"); err != nil {
		return l, err
	}
	if err := validation.ValidateDistinct(string(l.RequesterID), string(l.ApproverID), "o aprovador deve ser diferente do solicitante"); err != nil {
		return l, err
	}
	l.ID = ""
	l.Level = validation.SanitizeText(strings.TrimSpace(l.Level))

	var created models.ApprovalLink
	if err := s.gw.Webhook(ctx, approvalLinksURI, "create", l, &created); err != nil {
		logger.FromContext(ctx).Warn("Approval link creation failed", "requester", l.RequesterID, "approver", l.ApproverID, "error", err)
		return l, err
	}
	if created.ID == "" {
		created = l
	}
	return created, nil
}

func (s *approvalLinkServiceImpl) Delete(ctx context.Context, id string) error {
	if err := validation.ValidateStringNotEmpty(id, "id"); err != nil {
		return err
	}
	return s.gw.Webhook(ctx, approvalLinksURI, "delete", map[string]string{"id": id}, nil)
}
