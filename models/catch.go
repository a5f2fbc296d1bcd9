package models

import "time"

type ApprovalStatus string

const (
	CatchPending  ApprovalStatus = "pending"
	CatchApproved ApprovalStatus = "approved"
	CatchRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	return s == CatchPending || s == CatchApproved || s == CatchRejected
}

type Catch struct {
	ID             int            `json:"id"`
	RegistrationID int            `json:"registration_id"`
	TournamentID   int            `json:"tournament_id"`
	UserID         int            `json:"user_id"`
	WeightKg       float64        `json:"weight_kg"`
	Species        *string        `json:"species,omitempty"`
	PhotoKey       *string        `json:"-"`
	PhotoURL       *string        `json:"photo_url,omitempty"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	ReviewedAt     *time.Time     `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
