package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/fishing-tournament/models"
)

var (
	ErrPondNotFound          = errors.New("pond not found")
	ErrPondTournamentInvalid = errors.New("pond tournament invalid")
)

type PondRepository interface {
	Create(ctx context.Context, p *models.Pond) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Pond, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Pond, error)
	Update(ctx context.Context, p *models.Pond) error
	Delete(ctx context.Context, id int) error
}

type postgresPondRepository struct {
	db *sql.DB
}

func NewPostgresPondRepository(db *sql.DB) PondRepository {
	return &postgresPondRepository{db: db}
}

func (r *postgresPondRepository) Create(ctx context.Context, p *models.Pond) error {
	query := `
		INSERT INTO ponds (tournament_id, name, price_cents)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, p.TournamentID, p.Name, p.PriceCents).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok && code == pqForeignKeyViolation && constraint == "ponds_tournament_id_fkey" {
			return ErrPondTournamentInvalid
		}
		return fmt.Errorf("failed to create pond: %w", err)
	}
	return nil
}

func (r *postgresPondRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Pond, error) {
	p := &models.Pond{}
	query := `SELECT id, tournament_id, name, price_cents, created_at FROM ponds WHERE id = $1`
	err := getExecutor(r.db, exec).QueryRowContext(ctx, query, id).Scan(&p.ID, &p.TournamentID, &p.Name, &p.PriceCents, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPondNotFound
		}
		return nil, fmt.Errorf("failed to get pond %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresPondRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Pond, error) {
	query := `SELECT id, tournament_id, name, price_cents, created_at FROM ponds WHERE tournament_id = $1 ORDER BY id`
	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ponds: %w", err)
	}
	defer rows.Close()

	ponds := make([]models.Pond, 0)
	for rows.Next() {
		var p models.Pond
		if err := rows.Scan(&p.ID, &p.TournamentID, &p.Name, &p.PriceCents, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pond row: %w", err)
		}
		ponds = append(ponds, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pond rows: %w", err)
	}
	return ponds, nil
}

func (r *postgresPondRepository) Update(ctx context.Context, p *models.Pond) error {
	result, err := r.db.ExecContext(ctx, `UPDATE ponds SET name = $1, price_cents = $2 WHERE id = $3`, p.Name, p.PriceCents, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update pond %d: %w", p.ID, err)
	}
	return checkAffectedRows(result, ErrPondNotFound)
}

func (r *postgresPondRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ponds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pond %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPondNotFound)
}
