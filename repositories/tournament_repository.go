package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/fishing-tournament/models"
)

var (
	ErrTournamentNotFound         = errors.New("tournament not found")
	ErrTournamentLinkConflict     = errors.New("tournament link conflict")
	ErrTournamentOrganizerInvalid = errors.New("tournament organizer invalid")
	ErrTournamentTimeRange        = errors.New("tournament start time must be before end time")
)

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	GetByRegistrationLink(ctx context.Context, link string) (*models.Tournament, error)
	GetByLeaderboardLink(ctx context.Context, link string) (*models.Tournament, error)
	ListByOrganizer(ctx context.Context, organizerID int) ([]*models.Tournament, error)
	Update(ctx context.Context, t *models.Tournament) error
	UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func mapTournamentWriteError(err error) error {
	code, constraint, ok := pqConstraint(err)
	if !ok {
		return err
	}
	switch code {
	case pqUniqueViolation:
		if constraint == "tournaments_registration_link_key" || constraint == "tournaments_leaderboard_link_key" {
			return ErrTournamentLinkConflict
		}
	case pqForeignKeyViolation:
		if constraint == "tournaments_organizer_id_fkey" {
			return ErrTournamentOrganizerInvalid
		}
	case pqCheckViolation:
		if constraint == "chk_tournament_time_range" {
			return ErrTournamentTimeRange
		}
	}
	return err
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments
			(organizer_id, name, description, location, structure_type, status,
			 start_time, end_time, registration_link, leaderboard_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.OrganizerID,
		t.Name,
		t.Description,
		t.Location,
		t.StructureType,
		t.Status,
		t.StartTime,
		t.EndTime,
		t.RegistrationLink,
		t.LeaderboardLink,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if mapped := mapTournamentWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

const selectTournamentSQL = `
	SELECT id, organizer_id, name, description, location, structure_type, status,
	       start_time, end_time, registration_link, leaderboard_link, created_at, updated_at
	FROM tournaments`

func scanTournament(row interface{ Scan(dest ...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID,
		&t.OrganizerID,
		&t.Name,
		&t.Description,
		&t.Location,
		&t.StructureType,
		&t.Status,
		&t.StartTime,
		&t.EndTime,
		&t.RegistrationLink,
		&t.LeaderboardLink,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

func (r *postgresTournamentRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Tournament, error) {
	t := &models.Tournament{}
	if err := scanTournament(getExecutor(r.db, exec).QueryRowContext(ctx, query, args...), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to find tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.findOne(ctx, exec, selectTournamentSQL+` WHERE id = $1`, id)
}

func (r *postgresTournamentRepository) GetByRegistrationLink(ctx context.Context, link string) (*models.Tournament, error) {
	return r.findOne(ctx, nil, selectTournamentSQL+` WHERE registration_link = $1`, link)
}

func (r *postgresTournamentRepository) GetByLeaderboardLink(ctx context.Context, link string) (*models.Tournament, error) {
	return r.findOne(ctx, nil, selectTournamentSQL+` WHERE leaderboard_link = $1`, link)
}

func (r *postgresTournamentRepository) ListByOrganizer(ctx context.Context, organizerID int) ([]*models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, selectTournamentSQL+` WHERE organizer_id = $1 ORDER BY start_time DESC, id DESC`, organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments by organizer: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t := &models.Tournament{}
		if err := scanTournament(rows, t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments
		SET name = $1, description = $2, location = $3, start_time = $4, end_time = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name,
		t.Description,
		t.Location,
		t.StartTime,
		t.EndTime,
		t.ID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		if mapped := mapTournamentWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to update tournament %d: %w", t.ID, err)
	}
	return nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tournaments SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
