package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/models"
)

// listEnvelope covers the shapes the backends use for listings: a bare array,
// {rows, count}, {data, total} or {data, pagination}.
type listEnvelope struct {
	Rows       json.RawMessage     `json:"rows"`
	Data       json.RawMessage     `json:"data"`
	Items      json.RawMessage     `json:"items"`
	Count      *int                `json:"count"`
	Total      *int                `json:"total"`
	Pagination *gateway.Pagination `json:"pagination"`
}

func decodeList[T any](raw json.RawMessage) ([]T, int, error) {
	raw = bytes.TrimSpace(raw)
	out := []T{}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, 0, nil
	}
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", gateway.ErrDecode, err)
		}
		return out, len(out), nil
	}

	var env listEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", gateway.ErrDecode, err)
	}
	body := env.Rows
	for _, candidate := range []json.RawMessage{env.Data, env.Items} {
		if len(body) == 0 || bytes.Equal(body, []byte("null")) {
			body = candidate
		}
	}
	if len(body) > 0 && !bytes.Equal(body, []byte("null")) {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", gateway.ErrDecode, err)
		}
	}

	total := len(out)
	switch {
	case env.Count != nil:
		total = *env.Count
	case env.Total != nil:
		total = *env.Total
	case env.Pagination != nil:
		total = env.Pagination.Total
	}
	return out, total, nil
}

func dateParam(d models.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}
