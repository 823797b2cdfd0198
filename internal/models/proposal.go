package models

import (
	"time"

	"github.com/google/uuid"
)

type ProposalStatusType string

const (
	ProposalStatusDraft    ProposalStatusType = "DRAFT"
	ProposalStatusSent     ProposalStatusType = "SENT"
	ProposalStatusAccepted ProposalStatusType = "ACCEPTED"
	ProposalStatusRejected ProposalStatusType = "REJECTED"
)

type Proposal struct {
	Versioned

	ID         uuid.UUID          `json:"id"`
	DealID     uuid.UUID          `json:"deal_id"`
	Title      string             `json:"title"`
	Content    *string            `json:"content,omitempty"`
	Amount     float64            `json:"amount"`
	Status     ProposalStatusType `json:"status"`
	ValidUntil *time.Time         `json:"valid_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Proposal) GetID() string { return p.ID.String() }

func (p *Proposal) Fields() map[string]any {
	return map[string]any{
		"deal_id":     p.DealID,
		"title":       p.Title,
		"content":     p.Content,
		"amount":      p.Amount,
		"status":      string(p.Status),
		"valid_until": p.ValidUntil,
	}
}
