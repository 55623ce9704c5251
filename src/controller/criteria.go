package controller

import (
	"strings"
	"time"

	"github.com/username/backoffice/backend/src/models"
)

type SortDir int

const (
	SortNone SortDir = iota
	SortAsc
	SortDesc
)

func (d SortDir) String() string {
	switch d {
	case SortAsc:
		return "asc"
	case SortDesc:
		return "desc"
	default:
		return ""
	}
}

func (d SortDir) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *SortDir) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "asc":
		*d = SortAsc
	case "desc":
		*d = SortDesc
	default:
		*d = SortNone
	}
	return nil
}

// Sort holds the single sorted column. A zero Sort means "backend default".
type Sort struct {
	Field string  `json:"field,omitempty"`
	Dir   SortDir `json:"dir,omitempty"`
}

// Toggle cycles none -> asc -> desc -> none on field. Another column starts at asc.
func (s Sort) Toggle(field string) Sort {
	if field == "" {
		return Sort{}
	}
	if s.Field != field {
		return Sort{Field: field, Dir: SortAsc}
	}
	switch s.Dir {
	case SortNone:
		return Sort{Field: field, Dir: SortAsc}
	case SortAsc:
		return Sort{Field: field, Dir: SortDesc}
	default:
		return Sort{}
	}
}

// DirFor reports the indicator of a column.
func (s Sort) DirFor(field string) SortDir {
	if s.Field != field {
		return SortNone
	}
	return s.Dir
}

type Criteria struct {
	Start          models.Date `json:"start_date"`
	End            models.Date `json:"end_date"`
	CounterpartyID string      `json:"counterparty_id,omitempty"`
	Search         string      `json:"search,omitempty"`
	Status         string      `json:"status,omitempty"`
	Type           string      `json:"type,omitempty"`
	Sort           Sort        `json:"sort"`
}

// CurrentMonth is the default criteria: the calendar month of now, no sort,
// no counterparty.
func CurrentMonth(now time.Time) Criteria {
	y, m, _ := now.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return Criteria{Start: models.Date{Time: first}, End: models.Date{Time: last}}
}
