package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/fishing-tournament/models"
)

var (
	ErrCatchNotFound            = errors.New("catch not found")
	ErrCatchRegistrationInvalid = errors.New("catch registration invalid")
	ErrCatchWeightInvalid       = errors.New("catch weight must be positive")
)

type CatchFilter struct {
	TournamentID *int
	UserID       *int
	Status       *models.ApprovalStatus
}

type CatchRepository interface {
	Create(ctx context.Context, c *models.Catch) error
	GetByID(ctx context.Context, id int) (*models.Catch, error)
	UpdateApproval(ctx context.Context, id int, status models.ApprovalStatus, reviewedAt time.Time) error
	List(ctx context.Context, filter CatchFilter) ([]*models.Catch, error)
}

type postgresCatchRepository struct {
	db *sql.DB
}

func NewPostgresCatchRepository(db *sql.DB) CatchRepository {
	return &postgresCatchRepository{db: db}
}

func (r *postgresCatchRepository) Create(ctx context.Context, c *models.Catch) error {
	query := `
		INSERT INTO catches (registration_id, weight_kg, species, photo_key, approval_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.RegistrationID,
		c.WeightKg,
		c.Species,
		c.PhotoKey,
		c.ApprovalStatus,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok {
			switch {
			case code == pqForeignKeyViolation && constraint == "catches_registration_id_fkey":
				return ErrCatchRegistrationInvalid
			case code == pqCheckViolation && constraint == "catches_weight_kg_check":
				return ErrCatchWeightInvalid
			}
		}
		return fmt.Errorf("failed to create catch: %w", err)
	}
	return nil
}

const selectCatchSQL = `
	SELECT c.id, c.registration_id, r.tournament_id, r.user_id, c.weight_kg, c.species, c.photo_key,
	       c.approval_status, c.reviewed_at, c.created_at
	FROM catches c
	JOIN registrations r ON r.id = c.registration_id`

func scanCatch(row interface{ Scan(dest ...interface{}) error }, c *models.Catch) error {
	return row.Scan(
		&c.ID,
		&c.RegistrationID,
		&c.TournamentID,
		&c.UserID,
		&c.WeightKg,
		&c.Species,
		&c.PhotoKey,
		&c.ApprovalStatus,
		&c.ReviewedAt,
		&c.CreatedAt,
	)
}

func (r *postgresCatchRepository) GetByID(ctx context.Context, id int) (*models.Catch, error) {
	c := &models.Catch{}
	if err := scanCatch(r.db.QueryRowContext(ctx, selectCatchSQL+` WHERE c.id = $1`, id), c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCatchNotFound
		}
		return nil, fmt.Errorf("failed to get catch %d: %w", id, err)
	}
	return c, nil
}

func (r *postgresCatchRepository) UpdateApproval(ctx context.Context, id int, status models.ApprovalStatus, reviewedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE catches SET approval_status = $1, reviewed_at = $2 WHERE id = $3`,
		status, reviewedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update catch approval: %w", err)
	}
	return checkAffectedRows(result, ErrCatchNotFound)
}

func (r *postgresCatchRepository) List(ctx context.Context, filter CatchFilter) ([]*models.Catch, error) {
	var queryBuilder strings.Builder
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)

	queryBuilder.WriteString(selectCatchSQL)
	if filter.TournamentID != nil {
		args = append(args, *filter.TournamentID)
		conditions = append(conditions, fmt.Sprintf("r.tournament_id = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("c.approval_status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY c.created_at DESC, c.id DESC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list catches: %w", err)
	}
	defer rows.Close()

	catches := make([]*models.Catch, 0)
	for rows.Next() {
		c := &models.Catch{}
		if err := scanCatch(rows, c); err != nil {
			return nil, fmt.Errorf("failed to scan catch row: %w", err)
		}
		catches = append(catches, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catch rows: %w", err)
	}
	return catches, nil
}
