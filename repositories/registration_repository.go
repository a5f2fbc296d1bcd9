package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/fishing-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationActiveExists      = errors.New("active registration already exists for this user and tournament")
	ErrRegistrationDraftExists       = errors.New("draft registration already exists for this user and tournament")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament invalid")
	ErrRegistrationAreaInvalid       = errors.New("registration area invalid")

	// ErrRegistrationStatusChanged: статус строки изменился после чтения в транзакции.
	ErrRegistrationStatusChanged = errors.New("registration status changed concurrently")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	// Update и UpdateStatus пишут строку, только если её статус всё ещё expected/from,
	// иначе ErrRegistrationStatusChanged.
	Update(ctx context.Context, exec SQLExecutor, reg *models.Registration, expected models.RegistrationStatus) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.RegistrationStatus) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error)
	// FindActive возвращает pending/confirmed регистрацию пары (user, tournament).
	FindActive(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (*models.Registration, error)
	FindDraft(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.Registration, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Registration, error)

	// ReplaceAreaSelections удаляет все выборы мест регистрации и вставляет новые одним запросом.
	ReplaceAreaSelections(ctx context.Context, exec SQLExecutor, registrationID int, areaIDs []int) error
	ListAreaIDs(ctx context.Context, exec SQLExecutor, registrationIDs []int) (map[int][]int, error)
	DeleteStaleDrafts(ctx context.Context, updatedBefore time.Time) (int64, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func mapRegistrationWriteError(err error) error {
	code, constraint, ok := pqConstraint(err)
	if !ok {
		return err
	}
	switch code {
	case pqUniqueViolation:
		switch constraint {
		case "registrations_one_active_idx":
			return ErrRegistrationActiveExists
		case "registrations_one_draft_idx":
			return ErrRegistrationDraftExists
		}
	case pqForeignKeyViolation:
		switch constraint {
		case "registrations_tournament_id_fkey":
			return ErrRegistrationTournamentInvalid
		case "area_selections_area_id_fkey":
			return ErrRegistrationAreaInvalid
		}
	}
	return err
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	query := `
		INSERT INTO registrations
			(user_id, tournament_id, status, pond_id, zone_id, total_payment_cents, bank_account_no, payment_receipt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := getExecutor(r.db, exec).QueryRowContext(ctx, query,
		reg.UserID,
		reg.TournamentID,
		reg.Status,
		reg.PondID,
		reg.ZoneID,
		reg.TotalPaymentCents,
		reg.BankAccountNo,
		reg.PaymentReceipt,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if mapped := mapRegistrationWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) Update(ctx context.Context, exec SQLExecutor, reg *models.Registration, expected models.RegistrationStatus) error {
	query := `
		UPDATE registrations
		SET status = $1, pond_id = $2, zone_id = $3, total_payment_cents = $4,
		    bank_account_no = $5, payment_receipt = $6, updated_at = now()
		WHERE id = $7 AND status = $8
		RETURNING updated_at`

	err := getExecutor(r.db, exec).QueryRowContext(ctx, query,
		reg.Status,
		reg.PondID,
		reg.ZoneID,
		reg.TotalPaymentCents,
		reg.BankAccountNo,
		reg.PaymentReceipt,
		reg.ID,
		expected,
	).Scan(&reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationStatusChanged
		}
		if mapped := mapRegistrationWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to update registration %d: %w", reg.ID, err)
	}
	return nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.RegistrationStatus) error {
	result, err := getExecutor(r.db, exec).ExecContext(ctx,
		`UPDATE registrations SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		if mapped := mapRegistrationWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationStatusChanged)
}

const selectRegistrationSQL = `
	SELECT r.id, r.user_id, r.tournament_id, r.status, r.pond_id, r.zone_id, r.total_payment_cents,
	       r.bank_account_no, r.payment_receipt, r.created_at, r.updated_at
	FROM registrations r`

func scanRegistration(row interface{ Scan(dest ...interface{}) error }, reg *models.Registration, extra ...interface{}) error {
	dest := []interface{}{
		&reg.ID,
		&reg.UserID,
		&reg.TournamentID,
		&reg.Status,
		&reg.PondID,
		&reg.ZoneID,
		&reg.TotalPaymentCents,
		&reg.BankAccountNo,
		&reg.PaymentReceipt,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func (r *postgresRegistrationRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Registration, error) {
	reg := &models.Registration{}
	if err := scanRegistration(getExecutor(r.db, exec).QueryRowContext(ctx, query, args...), reg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error) {
	return r.findOne(ctx, exec, selectRegistrationSQL+` WHERE r.id = $1`, id)
}

func (r *postgresRegistrationRepository) FindActive(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (*models.Registration, error) {
	return r.findOne(ctx, exec,
		selectRegistrationSQL+` WHERE r.user_id = $1 AND r.tournament_id = $2 AND r.status = ANY($3) LIMIT 1`,
		userID, tournamentID, pq.Array(models.ActiveRegistrationStatuses))
}

func (r *postgresRegistrationRepository) FindDraft(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (*models.Registration, error) {
	return r.findOne(ctx, exec,
		selectRegistrationSQL+` WHERE r.user_id = $1 AND r.tournament_id = $2 AND r.status = $3`,
		userID, tournamentID, models.RegistrationDraft)
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.Registration, error) {
	var queryBuilder strings.Builder
	args := []interface{}{tournamentID}

	queryBuilder.WriteString(`
	SELECT r.id, r.user_id, r.tournament_id, r.status, r.pond_id, r.zone_id, r.total_payment_cents,
	       r.bank_account_no, r.payment_receipt, r.created_at, r.updated_at,
	       u.id, u.name, u.email, u.phone, u.role
	FROM registrations r
	JOIN users u ON u.id = r.user_id
	WHERE r.tournament_id = $1`)

	if status != nil {
		args = append(args, *status)
		queryBuilder.WriteString(fmt.Sprintf(" AND r.status = $%d", len(args)))
	} else {
		args = append(args, models.RegistrationDraft)
		queryBuilder.WriteString(fmt.Sprintf(" AND r.status <> $%d", len(args)))
	}
	queryBuilder.WriteString(" ORDER BY r.created_at ASC, r.id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by tournament: %w", err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		reg := &models.Registration{}
		u := &models.User{}
		if err := scanRegistration(rows, reg, &u.ID, &u.Name, &u.Email, &u.Phone, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		reg.User = u
		registrations = append(registrations, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) ListByUser(ctx context.Context, userID int) ([]*models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, selectRegistrationSQL+` WHERE r.user_id = $1 ORDER BY r.created_at DESC, r.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by user: %w", err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		reg := &models.Registration{}
		if err := scanRegistration(rows, reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		registrations = append(registrations, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) ReplaceAreaSelections(ctx context.Context, exec SQLExecutor, registrationID int, areaIDs []int) error {
	executor := getExecutor(r.db, exec)

	if _, err := executor.ExecContext(ctx, `DELETE FROM area_selections WHERE registration_id = $1`, registrationID); err != nil {
		return fmt.Errorf("failed to clear area selections for registration %d: %w", registrationID, err)
	}
	if len(areaIDs) == 0 {
		return nil
	}

	_, err := executor.ExecContext(ctx, `
		INSERT INTO area_selections (registration_id, area_id)
		SELECT $1::int, unnest($2::int[])`,
		registrationID, pq.Array(toInt64s(areaIDs)))
	if err != nil {
		if mapped := mapRegistrationWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to insert area selections for registration %d: %w", registrationID, err)
	}
	return nil
}

func (r *postgresRegistrationRepository) ListAreaIDs(ctx context.Context, exec SQLExecutor, registrationIDs []int) (map[int][]int, error) {
	result := make(map[int][]int, len(registrationIDs))
	if len(registrationIDs) == 0 {
		return result, nil
	}

	rows, err := getExecutor(r.db, exec).QueryContext(ctx,
		`SELECT registration_id, area_id FROM area_selections WHERE registration_id = ANY($1) ORDER BY registration_id, area_id`,
		pq.Array(toInt64s(registrationIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to list area selections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var regID, areaID int
		if err := rows.Scan(&regID, &areaID); err != nil {
			return nil, fmt.Errorf("failed to scan area selection row: %w", err)
		}
		result[regID] = append(result[regID], areaID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating area selection rows: %w", err)
	}
	return result, nil
}

func (r *postgresRegistrationRepository) DeleteStaleDrafts(ctx context.Context, updatedBefore time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM registrations WHERE status = $1 AND updated_at < $2`,
		models.RegistrationDraft, updatedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale drafts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n, nil
}
