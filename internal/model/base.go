package model

import (
	"time"

	"github.com/google/uuid"
)

// Date and time layouts used for appointment slots.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Pagination represents common pagination parameters
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// Normalize clamps page to >= 1 and limit to (0, 100], using def when unset.
func (p *Pagination) Normalize(def int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is a slice of results plus the total row count.
type Page[T any] struct {
	Rows  []T `json:"rows"`
	Total int `json:"total"`
}
