package models

// LeaderboardRow - одна строка выборки "подтверждённая регистрация x улов".
// Для участника без уловов CatchID == nil.
type LeaderboardRow struct {
	UserID         int
	UserName       string
	CatchID        *int
	WeightKg       float64
	ApprovalStatus ApprovalStatus
}

type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	UserID        int     `json:"user_id"`
	UserName      string  `json:"user_name"`
	TotalCatches  int     `json:"total_catches"`
	TotalWeightKg float64 `json:"total_weight_kg"`
	BiggestCatch  float64 `json:"biggest_catch_kg"`
}

type Leaderboard struct {
	TournamentID   int                `json:"tournament_id"`
	TournamentName string             `json:"tournament_name"`
	Status         TournamentStatus   `json:"status"`
	Entries        []LeaderboardEntry `json:"entries"`
}
