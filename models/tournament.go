package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие CHECK в БД.
type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "draft"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCancelled TournamentStatus = "cancelled"
)

// StructureType определяет, на каком уровне участник выбирает место и как считается цена.
type StructureType string

const (
	StructurePondOnly     StructureType = "pond_only"
	StructurePondZone     StructureType = "pond_zone"
	StructurePondZoneArea StructureType = "pond_zone_area"
)

func (s StructureType) Valid() bool {
	switch s {
	case StructurePondOnly, StructurePondZone, StructurePondZoneArea:
		return true
	}
	return false
}

func (s TournamentStatus) Valid() bool {
	switch s {
	case TournamentDraft, TournamentActive, TournamentCompleted, TournamentCancelled:
		return true
	}
	return false
}

// Closed сообщает, что турнир больше не принимает изменений регистраций и уловов.
func (s TournamentStatus) Closed() bool {
	return s == TournamentCompleted || s == TournamentCancelled
}

type Tournament struct {
	ID               int              `json:"id"`
	OrganizerID      int              `json:"organizer_id"`
	Name             string           `json:"name"`
	Description      *string          `json:"description,omitempty"`
	Location         *string          `json:"location,omitempty"`
	StructureType    StructureType    `json:"structure_type"`
	Status           TournamentStatus `json:"status"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	RegistrationLink string           `json:"registration_link"`
	LeaderboardLink  string           `json:"leaderboard_link"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	Ponds []Pond `json:"ponds,omitempty"`
}
