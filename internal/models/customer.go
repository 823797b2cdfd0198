package models

import (
	"time"

	"github.com/google/uuid"
)

type CustomerStatusType string

const (
	CustomerStatusActive   CustomerStatusType = "ACTIVE"
	CustomerStatusInactive CustomerStatusType = "INACTIVE"
	CustomerStatusArchived CustomerStatusType = "ARCHIVED"
)

type Customer struct {
	Versioned

	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Phone       *string            `json:"phone,omitempty"`
	Company     *string            `json:"company,omitempty"`
	Address     *string            `json:"address,omitempty"`
	Status      CustomerStatusType `json:"status"`
	Notes       *string            `json:"notes,omitempty"`
	AssignedTo  *string            `json:"assigned_to,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Customer) GetID() string { return c.ID.String() }

// Fields returns the mutable column values, keyed by column name.
func (c *Customer) Fields() map[string]any {
	return map[string]any{
		"name":        c.Name,
		"email":       c.Email,
		"phone":       c.Phone,
		"company":     c.Company,
		"address":     c.Address,
		"status":      string(c.Status),
		"notes":       c.Notes,
		"assigned_to": c.AssignedTo,
	}
}
