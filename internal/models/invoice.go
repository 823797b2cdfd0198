package models

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatusType string

const (
	InvoiceStatusDraft   InvoiceStatusType = "DRAFT"
	InvoiceStatusSent    InvoiceStatusType = "SENT"
	InvoiceStatusPaid    InvoiceStatusType = "PAID"
	InvoiceStatusOverdue InvoiceStatusType = "OVERDUE"
	InvoiceStatusVoid    InvoiceStatusType = "VOID"
)

type Invoice struct {
	Versioned

	ID            uuid.UUID         `json:"id"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	DealID        *uuid.UUID        `json:"deal_id,omitempty"`
	InvoiceNumber string            `json:"invoice_number"`
	Amount        float64           `json:"amount"`
	TaxAmount     float64           `json:"tax_amount"`
	TotalAmount   float64           `json:"total_amount"`
	Status        InvoiceStatusType `json:"status"`
	DueDate       *time.Time        `json:"due_date,omitempty"`
	PaymentTerms  *string           `json:"payment_terms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Invoice) GetID() string { return i.ID.String() }

func (i *Invoice) Fields() map[string]any {
	return map[string]any{
		"customer_id":    i.CustomerID,
		"deal_id":        i.DealID,
		"invoice_number": i.InvoiceNumber,
		"amount":         i.Amount,
		"tax_amount":     i.TaxAmount,
		"total_amount":   i.TotalAmount,
		"status":         string(i.Status),
		"due_date":       i.DueDate,
		"payment_terms":  i.PaymentTerms,
	}
}
