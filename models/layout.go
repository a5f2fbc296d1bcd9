package models

import "time"

// Pond - водоём турнира. Цена используется при структуре pond_only.
type Pond struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	Name         string    `json:"name"`
	PriceCents   int64     `json:"price_cents"`
	CreatedAt    time.Time `json:"created_at"`

	Zones []Zone `json:"zones,omitempty"`
}

// Zone - зона водоёма, номер уникален в пределах водоёма.
type Zone struct {
	ID           int       `json:"id"`
	PondID       int       `json:"pond_id"`
	TournamentID int       `json:"tournament_id"`
	ZoneNumber   int       `json:"zone_number"`
	Name         *string   `json:"name,omitempty"`
	PriceCents   int64     `json:"price_cents"`
	CreatedAt    time.Time `json:"created_at"`

	Areas []Area `json:"areas,omitempty"`
}

// Area - рыболовное место внутри зоны.
// IsAvailable - ручной флаг организатора; фактическая доступность считается
// вместе с активными выборами мест (см. AreaAvailability).
// IsFree заполняется только в дереве раскладки турнира.
type Area struct {
	ID           int       `json:"id"`
	ZoneID       int       `json:"zone_id"`
	TournamentID int       `json:"tournament_id"`
	AreaNumber   int       `json:"area_number"`
	PriceCents   int64     `json:"price_cents"`
	IsAvailable  bool      `json:"is_available"`
	IsFree       *bool     `json:"is_free,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AreaAvailability - состояние места на момент чтения.
type AreaAvailability struct {
	AreaID        int   `json:"area_id"`
	ZoneID        int   `json:"zone_id"`
	PondID        int   `json:"pond_id"`
	TournamentID  int   `json:"tournament_id"`
	AreaNumber    int   `json:"area_number"`
	PriceCents    int64 `json:"price_cents"`
	IsAvailable   bool  `json:"is_available"`
	ActiveHolders int   `json:"-"`
}

// Free сообщает, можно ли сейчас занять место.
func (a AreaAvailability) Free() bool {
	return a.IsAvailable && a.ActiveHolders == 0
}
