package models

import (
	"time"

	"github.com/google/uuid"
)

type DealStageType string

const (
	DealStageLead        DealStageType = "LEAD"
	DealStageProposal    DealStageType = "PROPOSAL"
	DealStageNegotiation DealStageType = "NEGOTIATION"
	DealStageClosedWon   DealStageType = "CLOSED_WON"
	DealStageClosedLost  DealStageType = "CLOSED_LOST"
)

type Deal struct {
	Versioned

	ID                uuid.UUID     `json:"id"`
	CustomerID        uuid.UUID     `json:"customer_id"`
	Title             string        `json:"title"`
	Description       *string       `json:"description,omitempty"`
	Value             float64       `json:"value"`
	Stage             DealStageType `json:"stage"`
	Probability       int           `json:"probability"`
	ExpectedCloseDate *time.Time    `json:"expected_close_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Deal) GetID() string { return d.ID.String() }

func (d *Deal) Fields() map[string]any {
	return map[string]any{
		"customer_id":         d.CustomerID,
		"title":               d.Title,
		"description":         d.Description,
		"value":               d.Value,
		"stage":               string(d.Stage),
		"probability":         d.Probability,
		"expected_close_date": d.ExpectedCloseDate,
	}
}
