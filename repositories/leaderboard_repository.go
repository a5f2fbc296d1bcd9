package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/fishing-tournament/models"
)

type LeaderboardRepository interface {
	// ListRows возвращает по строке на каждый улов подтверждённых участников турнира;
	// участник без уловов даёт одну строку с CatchID == nil.
	ListRows(ctx context.Context, tournamentID int) ([]models.LeaderboardRow, error)
}

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

func (r *postgresLeaderboardRepository) ListRows(ctx context.Context, tournamentID int) ([]models.LeaderboardRow, error) {
	query := `
		SELECT u.id, u.name, c.id, COALESCE(c.weight_kg, 0), COALESCE(c.approval_status, '')
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		LEFT JOIN catches c ON c.registration_id = r.id
		WHERE r.tournament_id = $1 AND r.status = $2
		ORDER BY u.id, c.id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID, models.RegistrationConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard rows: %w", err)
	}
	defer rows.Close()

	result := make([]models.LeaderboardRow, 0)
	for rows.Next() {
		var row models.LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.UserName, &row.CatchID, &row.WeightKg, &row.ApprovalStatus); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}
	return result, nil
}
