package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/fishing-tournament/models"
)

var (
	ErrZoneNotFound       = errors.New("zone not found")
	ErrZoneNumberConflict = errors.New("zone number already exists in this pond")
	ErrZonePondInvalid    = errors.New("zone pond invalid")
)

type ZoneRepository interface {
	Create(ctx context.Context, z *models.Zone) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Zone, error)
	ListByPond(ctx context.Context, pondID int) ([]models.Zone, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Zone, error)
	Update(ctx context.Context, z *models.Zone) error
	Delete(ctx context.Context, id int) error
}

type postgresZoneRepository struct {
	db *sql.DB
}

func NewPostgresZoneRepository(db *sql.DB) ZoneRepository {
	return &postgresZoneRepository{db: db}
}

func mapZoneWriteError(err error) error {
	code, constraint, ok := pqConstraint(err)
	if !ok {
		return err
	}
	switch {
	case code == pqUniqueViolation && constraint == "zones_pond_id_zone_number_key":
		return ErrZoneNumberConflict
	case code == pqForeignKeyViolation && constraint == "zones_pond_id_fkey":
		return ErrZonePondInvalid
	}
	return err
}

func (r *postgresZoneRepository) Create(ctx context.Context, z *models.Zone) error {
	query := `
		WITH inserted AS (
			INSERT INTO zones (pond_id, zone_number, name, price_cents)
			VALUES ($1, $2, $3, $4)
			RETURNING id, pond_id, created_at
		)
		SELECT i.id, i.created_at, p.tournament_id
		FROM inserted i
		JOIN ponds p ON p.id = i.pond_id`

	err := r.db.QueryRowContext(ctx, query, z.PondID, z.ZoneNumber, z.Name, z.PriceCents).Scan(&z.ID, &z.CreatedAt, &z.TournamentID)
	if err != nil {
		if mapped := mapZoneWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create zone: %w", err)
	}
	return nil
}

const selectZoneSQL = `
	SELECT z.id, z.pond_id, p.tournament_id, z.zone_number, z.name, z.price_cents, z.created_at
	FROM zones z
	JOIN ponds p ON p.id = z.pond_id`

func scanZone(row interface{ Scan(dest ...interface{}) error }, z *models.Zone) error {
	return row.Scan(&z.ID, &z.PondID, &z.TournamentID, &z.ZoneNumber, &z.Name, &z.PriceCents, &z.CreatedAt)
}

func (r *postgresZoneRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Zone, error) {
	z := &models.Zone{}
	if err := scanZone(getExecutor(r.db, exec).QueryRowContext(ctx, selectZoneSQL+` WHERE z.id = $1`, id), z); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrZoneNotFound
		}
		return nil, fmt.Errorf("failed to get zone %d: %w", id, err)
	}
	return z, nil
}

func (r *postgresZoneRepository) list(ctx context.Context, exec SQLExecutor, query string, arg int) ([]models.Zone, error) {
	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	defer rows.Close()

	zones := make([]models.Zone, 0)
	for rows.Next() {
		var z models.Zone
		if err := scanZone(rows, &z); err != nil {
			return nil, fmt.Errorf("failed to scan zone row: %w", err)
		}
		zones = append(zones, z)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating zone rows: %w", err)
	}
	return zones, nil
}

func (r *postgresZoneRepository) ListByPond(ctx context.Context, pondID int) ([]models.Zone, error) {
	return r.list(ctx, nil, selectZoneSQL+` WHERE z.pond_id = $1 ORDER BY z.zone_number`, pondID)
}

func (r *postgresZoneRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Zone, error) {
	return r.list(ctx, exec, selectZoneSQL+` WHERE p.tournament_id = $1 ORDER BY z.pond_id, z.zone_number`, tournamentID)
}

func (r *postgresZoneRepository) Update(ctx context.Context, z *models.Zone) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE zones SET zone_number = $1, name = $2, price_cents = $3 WHERE id = $4`,
		z.ZoneNumber, z.Name, z.PriceCents, z.ID)
	if err != nil {
		if mapped := mapZoneWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to update zone %d: %w", z.ID, err)
	}
	return checkAffectedRows(result, ErrZoneNotFound)
}

func (r *postgresZoneRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete zone %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrZoneNotFound)
}
