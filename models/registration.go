package models

import "time"

type RegistrationStatus string

const (
	RegistrationDraft     RegistrationStatus = "draft"
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationRejected  RegistrationStatus = "rejected"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationDraft, RegistrationPending, RegistrationConfirmed, RegistrationRejected, RegistrationCancelled:
		return true
	}
	return false
}

// Active - регистрация удерживает выбранные места.
func (s RegistrationStatus) Active() bool {
	return s == RegistrationPending || s == RegistrationConfirmed
}

// ActiveRegistrationStatuses используется в SQL-фильтрах (pq.Array).
var ActiveRegistrationStatuses = []string{string(RegistrationPending), string(RegistrationConfirmed)}

var registrationTransitions = map[RegistrationStatus][]RegistrationStatus{
	RegistrationDraft:     {RegistrationPending},
	RegistrationPending:   {RegistrationConfirmed, RegistrationRejected, RegistrationCancelled},
	RegistrationConfirmed: {RegistrationCancelled},
	RegistrationRejected:  {RegistrationCancelled},
	RegistrationCancelled: {},
}

// CanTransition проверяет переход статуса регистрации.
func CanTransition(from, to RegistrationStatus) bool {
	for _, next := range registrationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Registration struct {
	ID                int                `json:"id"`
	UserID            int                `json:"user_id"`
	TournamentID      int                `json:"tournament_id"`
	Status            RegistrationStatus `json:"status"`
	PondID            *int               `json:"pond_id,omitempty"`
	ZoneID            *int               `json:"zone_id,omitempty"`
	TotalPaymentCents int64              `json:"total_payment_cents"`
	BankAccountNo     *string            `json:"bank_account_no,omitempty"`
	PaymentReceipt    *string            `json:"-"`
	PaymentReceiptURL *string            `json:"payment_receipt_url,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`

	AreaIDs []int `json:"area_ids"`
	User    *User `json:"user,omitempty"`
}

// AreaSelection связывает регистрацию с выбранным местом.
type AreaSelection struct {
	RegistrationID int `json:"registration_id"`
	AreaID         int `json:"area_id"`
}

// RegistrationSummary - ответ на успешную подачу заявки.
type RegistrationSummary struct {
	ID                int                `json:"id"`
	TournamentID      int                `json:"tournament_id"`
	TotalPaymentCents int64              `json:"total_payment_cents"`
	Status            RegistrationStatus `json:"status"`
	AreaCount         int                `json:"area_count"`
}
