// Package events описывает доменные события, которые сервис публикует во внешний брокер.
package events

import (
	"context"
	"time"
)

const (
	RegistrationSubmitted     = "registration.submitted"
	RegistrationStatusChanged = "registration.status_changed"
	CatchReviewed             = "catch.reviewed"
)

type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type RegistrationSubmittedPayload struct {
	RegistrationID    int   `json:"registration_id"`
	TournamentID      int   `json:"tournament_id"`
	UserID            int   `json:"user_id"`
	TotalPaymentCents int64 `json:"total_payment_cents"`
	AreaIDs           []int `json:"area_ids"`
}

type RegistrationStatusChangedPayload struct {
	RegistrationID int    `json:"registration_id"`
	TournamentID   int    `json:"tournament_id"`
	UserID         int    `json:"user_id"`
	From           string `json:"from"`
	To             string `json:"to"`
}

type CatchReviewedPayload struct {
	CatchID      int     `json:"catch_id"`
	TournamentID int     `json:"tournament_id"`
	UserID       int     `json:"user_id"`
	WeightKg     float64 `json:"weight_kg"`
	Status       string  `json:"status"`
}

// Publisher публикует события. Ошибки публикации не должны ломать основной запрос.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher используется, когда брокер не настроен.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }

func New(eventType string, payload interface{}) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload}
}
