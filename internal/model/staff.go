package model

import "fmt"

type Staff struct {
	Base
	Name           string  `db:"name" json:"name"`
	Email          string  `db:"email" json:"email"`
	PasswordHash   string  `db:"password_hash" json:"-"`
	Role           string  `db:"role" json:"role"`
	Specialization *string `db:"specialization" json:"specialization,omitempty"`
	Phone          *string `db:"phone" json:"phone,omitempty"`
	IsActive       bool    `db:"is_active" json:"is_active"`
}

// DisplayName renders "Name (Specialization)", or just the name.
func (s *Staff) DisplayName() string {
	if s.Specialization != nil && *s.Specialization != "" {
		return fmt.Sprintf("%s (%s)", s.Name, *s.Specialization)
	}
	return s.Name
}
