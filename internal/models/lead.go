package models

import (
	"time"

	"github.com/google/uuid"
)

type LeadStatusType string

const (
	LeadStatusNew       LeadStatusType = "NEW"
	LeadStatusContacted LeadStatusType = "CONTACTED"
	LeadStatusQualified LeadStatusType = "QUALIFIED"
	LeadStatusLost      LeadStatusType = "LOST"
)

type LeadSourceType string

const (
	LeadSourceWebsite  LeadSourceType = "WEBSITE"
	LeadSourceReferral LeadSourceType = "REFERRAL"
	LeadSourceCampaign LeadSourceType = "CAMPAIGN"
	LeadSourceOther    LeadSourceType = "OTHER"
)

type Lead struct {
	Versioned

	ID      uuid.UUID      `json:"id"`
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Phone   *string        `json:"phone,omitempty"`
	Company *string        `json:"company,omitempty"`
	Status  LeadStatusType `json:"status"`
	Source  LeadSourceType `json:"source"`
	Score   int            `json:"score"`
	Notes   *string        `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Lead) GetID() string { return l.ID.String() }

func (l *Lead) Fields() map[string]any {
	return map[string]any{
		"name":    l.Name,
		"email":   l.Email,
		"phone":   l.Phone,
		"company": l.Company,
		"status":  string(l.Status),
		"source":  string(l.Source),
		"score":   l.Score,
		"notes":   l.Notes,
	}
}
