package types

import "strings"

// Member is a registered library patron. Email is unique when present.
type Member struct {
	ID    int64   `json:"id" db:"id"`
	Name  string  `json:"name" db:"name"`
	Email *string `json:"email,omitempty" db:"email"`
	Phone *string `json:"phone,omitempty" db:"phone"`
}

// NewMember carries the raw input for Members().Add.
type NewMember struct {
	Name  string
	Email string
	Phone string
}

// Normalize trims the fields and checks that a name is present.
func (nm *NewMember) Normalize() error {
	nm.Name = strings.TrimSpace(nm.Name)
	nm.Email = strings.TrimSpace(nm.Email)
	nm.Phone = strings.TrimSpace(nm.Phone)
	if nm.Name == "" {
		return ErrInvalidName
	}
	return nil
}

// optional maps a blank string to NULL.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EmailValue returns the email for storage, nil when blank.
func (nm NewMember) EmailValue() *string { return optional(nm.Email) }

// PhoneValue returns the phone for storage, nil when blank.
func (nm NewMember) PhoneValue() *string { return optional(nm.Phone) }
