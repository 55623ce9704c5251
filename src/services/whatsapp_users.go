package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/username/backoffice/backend/src/format"
	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/models"
	"github.com/username/backoffice/backend/src/security/validation"
)

const whatsAppUsersURI = "whatsapp-users"

type whatsAppUserServiceImpl struct {
	gw *gateway.Client
}

func NewWhatsAppUserService(gw *gateway.Client) WhatsAppUserService {
	return &whatsAppUserServiceImpl{gw: gw}
}

// List returns the users with the phone masked for display.
func (s *whatsAppUserServiceImpl) List(ctx context.Context) ([]models.WhatsAppUser, error) {
	var raw json.RawMessage
	if err := s.gw.Webhook(ctx, whatsAppUsersURI, "list", nil, &raw); err != nil {
		return nil, err
	}
	users, _, err := decodeList[models.WhatsAppUser](raw)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Phone = format.Phone(users[i].Phone)
	}
	return users, nil
}

func normalizeWhatsAppUser(u models.WhatsAppUser) (models.WhatsAppUser, error) {
	if err := validation.ValidateRequiredText(u.Name, "nome", validation.MaxNameLength); err != nil {
		return u, err
	}
	digits, err := validation.ValidatePhone(u.Phone, "telefone")
	if err != nil {
		return u, err
	}
	u.Name = validation.SanitizeText(strings.TrimSpace(u.Name))
	u.Department = validation.SanitizeText(strings.TrimSpace(u.Department))
	u.Role = validation.SanitizeText(strings.TrimSpace(u.Role))
	u.Phone = "55" + digits
	return u, nil
}

func (s *whatsAppUserServiceImpl) Create(ctx context.Context, u models.WhatsAppUser) (models.WhatsAppUser, error) {
	u, err := normalizeWhatsAppUser(u)
	if err != nil {
		return u, err
	}
	u.ID = ""
	var created models.WhatsAppUser
	if err := s.gw.Webhook(ctx, whatsAppUsersURI, "create", u, &created); err != nil {
		logger.FromContext(ctx).Warn("WhatsApp user creation failed", "error", err)
		return u, err
	}
	if created.ID == "" {
		created = u
	}
	created.Phone = format.Phone(created.Phone)
	return created, nil
}

func (s *whatsAppUserServiceImpl) Update(ctx context.Context, id string, u models.WhatsAppUser) (models.WhatsAppUser, error) {
	if err := validation.ValidateStringNotEmpty(id, "id"); err != nil {
		return u, err
	}
	u, err := normalizeWhatsAppUser(u)
	if err != nil {
		return u, err
	}
	u.ID = models.ID(id)
	if err := s.gw.Webhook(ctx, whatsAppUsersURI, "update", u, nil); err != nil {
		logger.FromContext(ctx).Warn("WhatsApp user update failed", "id", id, "error", err)
		return u, err
	}
	u.Phone = format.Phone(u.Phone)
	return u, nil
}

func (s *whatsAppUserServiceImpl) Delete(ctx context.Context, id string) error {
	if err := validation.ValidateStringNotEmpty(id, "id"); err != nil {
		return err
	}
	return s.gw.Webhook(ctx, whatsAppUsersURI, "delete", map[string]string{"id": id}, nil)
}
