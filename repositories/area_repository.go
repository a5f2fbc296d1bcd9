package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/fishing-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrAreaNotFound       = errors.New("area not found")
	ErrAreaNumberConflict = errors.New("area number already exists in this zone")
	ErrAreaZoneInvalid    = errors.New("area zone invalid")
)

type AreaRepository interface {
	Create(ctx context.Context, a *models.Area) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Area, error)
	ListByZone(ctx context.Context, zoneID int) ([]models.Area, error)
	Update(ctx context.Context, a *models.Area) error
	Delete(ctx context.Context, id int) error

	// GetAvailability читает места с числом активных (pending/confirmed) выборов.
	// Отсутствующие id просто не попадают в результат.
	GetAvailability(ctx context.Context, exec SQLExecutor, areaIDs []int) ([]models.AreaAvailability, error)
	ListAvailabilityByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.AreaAvailability, error)
	// LockForAllocation берёт FOR UPDATE блокировки строк мест в порядке возрастания id.
	// Должен вызываться внутри транзакции.
	LockForAllocation(ctx context.Context, exec SQLExecutor, areaIDs []int) ([]int, error)
}

type postgresAreaRepository struct {
	db *sql.DB
}

func NewPostgresAreaRepository(db *sql.DB) AreaRepository {
	return &postgresAreaRepository{db: db}
}

func mapAreaWriteError(err error) error {
	code, constraint, ok := pqConstraint(err)
	if !ok {
		return err
	}
	switch {
	case code == pqUniqueViolation && constraint == "areas_zone_id_area_number_key":
		return ErrAreaNumberConflict
	case code == pqForeignKeyViolation && constraint == "areas_zone_id_fkey":
		return ErrAreaZoneInvalid
	}
	return err
}

func (r *postgresAreaRepository) Create(ctx context.Context, a *models.Area) error {
	query := `
		WITH inserted AS (
			INSERT INTO areas (zone_id, area_number, price_cents, is_available)
			VALUES ($1, $2, $3, $4)
			RETURNING id, zone_id, created_at
		)
		SELECT i.id, i.created_at, p.tournament_id
		FROM inserted i
		JOIN zones z ON z.id = i.zone_id
		JOIN ponds p ON p.id = z.pond_id`

	err := r.db.QueryRowContext(ctx, query, a.ZoneID, a.AreaNumber, a.PriceCents, a.IsAvailable).
		Scan(&a.ID, &a.CreatedAt, &a.TournamentID)
	if err != nil {
		if mapped := mapAreaWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create area: %w", err)
	}
	return nil
}

const selectAreaSQL = `
	SELECT a.id, a.zone_id, p.tournament_id, a.area_number, a.price_cents, a.is_available, a.created_at
	FROM areas a
	JOIN zones z ON z.id = a.zone_id
	JOIN ponds p ON p.id = z.pond_id`

func scanArea(row interface{ Scan(dest ...interface{}) error }, a *models.Area) error {
	return row.Scan(&a.ID, &a.ZoneID, &a.TournamentID, &a.AreaNumber, &a.PriceCents, &a.IsAvailable, &a.CreatedAt)
}

func (r *postgresAreaRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Area, error) {
	a := &models.Area{}
	if err := scanArea(getExecutor(r.db, exec).QueryRowContext(ctx, selectAreaSQL+` WHERE a.id = $1`, id), a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAreaNotFound
		}
		return nil, fmt.Errorf("failed to get area %d: %w", id, err)
	}
	return a, nil
}

func (r *postgresAreaRepository) ListByZone(ctx context.Context, zoneID int) ([]models.Area, error) {
	rows, err := r.db.QueryContext(ctx, selectAreaSQL+` WHERE a.zone_id = $1 ORDER BY a.area_number`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	defer rows.Close()

	areas := make([]models.Area, 0)
	for rows.Next() {
		var a models.Area
		if err := scanArea(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan area row: %w", err)
		}
		areas = append(areas, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating area rows: %w", err)
	}
	return areas, nil
}

func (r *postgresAreaRepository) Update(ctx context.Context, a *models.Area) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE areas SET area_number = $1, price_cents = $2, is_available = $3 WHERE id = $4`,
		a.AreaNumber, a.PriceCents, a.IsAvailable, a.ID)
	if err != nil {
		if mapped := mapAreaWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to update area %d: %w", a.ID, err)
	}
	return checkAffectedRows(result, ErrAreaNotFound)
}

func (r *postgresAreaRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM areas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete area %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrAreaNotFound)
}

const selectAreaAvailabilitySQL = `
	SELECT a.id, a.zone_id, z.pond_id, p.tournament_id, a.area_number, a.price_cents, a.is_available,
	       (SELECT COUNT(*)
	          FROM area_selections s
	          JOIN registrations r ON r.id = s.registration_id
	         WHERE s.area_id = a.id AND r.status = ANY($2)) AS active_holders
	FROM areas a
	JOIN zones z ON z.id = a.zone_id
	JOIN ponds p ON p.id = z.pond_id`

func (r *postgresAreaRepository) queryAvailability(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.AreaAvailability, error) {
	rows, err := getExecutor(r.db, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query area availability: %w", err)
	}
	defer rows.Close()

	result := make([]models.AreaAvailability, 0)
	for rows.Next() {
		var a models.AreaAvailability
		if err := rows.Scan(
			&a.AreaID,
			&a.ZoneID,
			&a.PondID,
			&a.TournamentID,
			&a.AreaNumber,
			&a.PriceCents,
			&a.IsAvailable,
			&a.ActiveHolders,
		); err != nil {
			return nil, fmt.Errorf("failed to scan area availability row: %w", err)
		}
		result = append(result, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating area availability rows: %w", err)
	}
	return result, nil
}

func (r *postgresAreaRepository) GetAvailability(ctx context.Context, exec SQLExecutor, areaIDs []int) ([]models.AreaAvailability, error) {
	if len(areaIDs) == 0 {
		return []models.AreaAvailability{}, nil
	}
	return r.queryAvailability(ctx, exec,
		selectAreaAvailabilitySQL+` WHERE a.id = ANY($1) ORDER BY a.id`,
		pq.Array(toInt64s(areaIDs)), pq.Array(models.ActiveRegistrationStatuses))
}

func (r *postgresAreaRepository) ListAvailabilityByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.AreaAvailability, error) {
	return r.queryAvailability(ctx, exec,
		selectAreaAvailabilitySQL+` WHERE p.tournament_id = $1 ORDER BY z.pond_id, z.zone_number, a.area_number`,
		tournamentID, pq.Array(models.ActiveRegistrationStatuses))
}

func (r *postgresAreaRepository) LockForAllocation(ctx context.Context, exec SQLExecutor, areaIDs []int) ([]int, error) {
	if len(areaIDs) == 0 {
		return []int{}, nil
	}
	rows, err := getExecutor(r.db, exec).QueryContext(ctx,
		`SELECT id FROM areas WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(toInt64s(areaIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to lock areas: %w", err)
	}
	defer rows.Close()

	locked := make([]int, 0, len(areaIDs))
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan locked area id: %w", err)
		}
		locked = append(locked, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locked areas: %w", err)
	}
	return locked, nil
}
