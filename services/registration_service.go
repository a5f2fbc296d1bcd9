package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/fishing-tournament/events"
	"github.com/Dosada05/fishing-tournament/models"
	"github.com/Dosada05/fishing-tournament/repositories"
	"github.com/Dosada05/fishing-tournament/storage"
)

const defaultAllocationTimeout = 5 * time.Second

type RegistrationInput struct {
	TournamentID  int
	PondID        *int
	ZoneID        *int
	AreaIDs       []int
	BankAccountNo string
	Receipt       *UploadFile
}

type RegistrationService interface {
	// SaveDraft создаёт или перезаписывает черновик пользователя для турнира.
	SaveDraft(ctx context.Context, userID int, input RegistrationInput) (*models.RegistrationSummary, error)
	// Submit атомарно занимает места и переводит заявку в pending.
	Submit(ctx context.Context, userID int, input RegistrationInput) (*models.RegistrationSummary, error)
	UpdateStatus(ctx context.Context, organizerID, registrationID int, status models.RegistrationStatus) (*models.Registration, error)
	GetDraft(ctx context.Context, userID, tournamentID int) (*models.Registration, error)
	ListMine(ctx context.Context, userID int) ([]*models.Registration, error)
	ListByTournament(ctx context.Context, organizerID, tournamentID int, status *models.RegistrationStatus) ([]*models.Registration, error)
	PurgeStaleDrafts(ctx context.Context, ttl time.Duration) (int64, error)
}

type RegistrationServiceConfig struct {
	AllocationTimeout time.Duration
}

type registrationService struct {
	tx               repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	areaRepo         repositories.AreaRepository
	pricing          *PricingResolver
	uploader         storage.FileUploader
	publisher        events.Publisher
	leaderboard      LeaderboardService
	logger           *slog.Logger
	cfg              RegistrationServiceConfig
}

func NewRegistrationService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	areaRepo repositories.AreaRepository,
	pricing *PricingResolver,
	uploader storage.FileUploader,
	publisher events.Publisher,
	leaderboard LeaderboardService,
	logger *slog.Logger,
	cfg RegistrationServiceConfig,
) RegistrationService {
	if cfg.AllocationTimeout <= 0 {
		cfg.AllocationTimeout = defaultAllocationTimeout
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &registrationService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		areaRepo:         areaRepo,
		pricing:          pricing,
		uploader:         uploader,
		publisher:        publisher,
		leaderboard:      leaderboard,
		logger:           logger,
		cfg:              cfg,
	}
}

func (s *registrationService) SaveDraft(ctx context.Context, userID int, input RegistrationInput) (*models.RegistrationSummary, error) {
	areaIDs, err := uniqueIDs(input.AreaIDs)
	if err != nil {
		return nil, err
	}
	if input.TournamentID <= 0 {
		return nil, fmt.Errorf("%w: tournament_id is required", ErrValidationFailed)
	}

	receiptKey, err := s.uploadReceipt(ctx, input)
	if err != nil {
		return nil, err
	}

	var reg *models.Registration
	var staleReceipt *string
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.openTournament(ctx, exec, input.TournamentID)
		if err != nil {
			return err
		}
		if err := s.ensureNoActive(ctx, exec, userID, tournament.ID); err != nil {
			return err
		}

		sel, err := SelectionFor(tournament.StructureType, input.PondID, input.ZoneID, areaIDs)
		if err != nil {
			return err
		}
		total, err := s.pricing.Total(ctx, exec, tournament.ID, sel)
		if err != nil {
			return err
		}

		reg, staleReceipt, err = s.upsert(ctx, exec, userID, tournament.ID, models.RegistrationDraft, input, sel, total, receiptKey)
		if err != nil {
			return err
		}
		return s.registrationRepo.ReplaceAreaSelections(ctx, exec, reg.ID, selectedAreaIDs(sel))
	})
	if err != nil {
		s.discardUpload(ctx, receiptKey)
		return nil, s.translateError(err)
	}
	s.discardUpload(ctx, staleReceipt)

	s.logger.InfoContext(ctx, "registration draft saved",
		slog.Int("registration_id", reg.ID),
		slog.Int("tournament_id", reg.TournamentID),
		slog.Int("user_id", userID))

	return &models.RegistrationSummary{
		ID:                reg.ID,
		TournamentID:      reg.TournamentID,
		TotalPaymentCents: reg.TotalPaymentCents,
		Status:            reg.Status,
		AreaCount:         len(reg.AreaIDs),
	}, nil
}

func (s *registrationService) Submit(ctx context.Context, userID int, input RegistrationInput) (*models.RegistrationSummary, error) {
	areaIDs, err := uniqueIDs(input.AreaIDs)
	if err != nil {
		return nil, err
	}
	if input.TournamentID <= 0 {
		return nil, fmt.Errorf("%w: tournament_id is required", ErrValidationFailed)
	}
	if strings.TrimSpace(input.BankAccountNo) == "" {
		return nil, ErrBankAccountRequired
	}

	// Квитанция загружается до транзакции, чтобы не держать блокировки мест во время загрузки.
	receiptKey, err := s.uploadReceipt(ctx, input)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.cfg.AllocationTimeout)
	defer cancel()

	var reg *models.Registration
	var staleReceipt *string
	err = s.tx.WithinTx(txCtx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.openTournament(txCtx, exec, input.TournamentID)
		if err != nil {
			return err
		}
		if err := s.ensureNoActive(txCtx, exec, userID, tournament.ID); err != nil {
			return err
		}

		sel, err := SelectionFor(tournament.StructureType, input.PondID, input.ZoneID, areaIDs)
		if err != nil {
			return err
		}

		var total int64
		if choice, ok := sel.(AreaChoice); ok {
			total, err = s.lockAreas(txCtx, exec, tournament.ID, choice.AreaIDs)
		} else {
			total, err = s.pricing.Total(txCtx, exec, tournament.ID, sel)
		}
		if err != nil {
			return err
		}

		reg, staleReceipt, err = s.upsert(txCtx, exec, userID, tournament.ID, models.RegistrationPending, input, sel, total, receiptKey)
		if err != nil {
			return err
		}
		return s.registrationRepo.ReplaceAreaSelections(txCtx, exec, reg.ID, selectedAreaIDs(sel))
	})
	if err != nil {
		s.discardUpload(ctx, receiptKey)
		if errors.Is(txCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "registration allocation timed out",
				slog.Int("tournament_id", input.TournamentID), slog.Int("user_id", userID))
			return nil, ErrTransient
		}
		return nil, s.translateError(err)
	}
	s.discardUpload(ctx, staleReceipt)

	s.logger.InfoContext(ctx, "registration submitted",
		slog.Int("registration_id", reg.ID),
		slog.Int("tournament_id", reg.TournamentID),
		slog.Int("user_id", userID),
		slog.Int64("total_payment_cents", reg.TotalPaymentCents),
		slog.Int("area_count", len(reg.AreaIDs)))

	s.publish(ctx, events.New(events.RegistrationSubmitted, events.RegistrationSubmittedPayload{
		RegistrationID:    reg.ID,
		TournamentID:      reg.TournamentID,
		UserID:            userID,
		TotalPaymentCents: reg.TotalPaymentCents,
		AreaIDs:           reg.AreaIDs,
	}))

	return &models.RegistrationSummary{
		ID:                reg.ID,
		TournamentID:      reg.TournamentID,
		TotalPaymentCents: reg.TotalPaymentCents,
		Status:            reg.Status,
		AreaCount:         len(reg.AreaIDs),
	}, nil
}

// lockAreas блокирует строки мест, перечитывает их занятость внутри транзакции
// и возвращает сумму цен. Любое отсутствующее, занятое или закрытое место - ErrAreasUnavailable.
func (s *registrationService) lockAreas(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, areaIDs []int) (int64, error) {
	locked, err := s.areaRepo.LockForAllocation(ctx, exec, areaIDs)
	if err != nil {
		return 0, err
	}
	if len(locked) != len(areaIDs) {
		return 0, ErrAreasUnavailable
	}

	rows, err := s.areaRepo.GetAvailability(ctx, exec, areaIDs)
	if err != nil {
		return 0, err
	}
	if len(rows) != len(areaIDs) {
		return 0, ErrAreasUnavailable
	}
	for _, row := range rows {
		if row.TournamentID != tournamentID || !row.Free() {
			return 0, ErrAreasUnavailable
		}
	}
	return sumAreaPrices(tournamentID, areaIDs, rows)
}

func (s *registrationService) openTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentActive {
		return nil, ErrRegistrationNotOpen
	}
	return tournament, nil
}

func (s *registrationService) ensureNoActive(ctx context.Context, exec repositories.SQLExecutor, userID, tournamentID int) error {
	_, err := s.registrationRepo.FindActive(ctx, exec, userID, tournamentID)
	if err == nil {
		return ErrRegistrationConflict
	}
	if errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil
	}
	return err
}

// upsert переиспользует строку черновика, если она есть, иначе создаёт новую.
// Запись черновика условна: если его успели отправить параллельно, вернётся конфликт.
// Второе значение - ключ квитанции, заменённой новой; удалять его можно только после коммита.
func (s *registrationService) upsert(
	ctx context.Context,
	exec repositories.SQLExecutor,
	userID, tournamentID int,
	status models.RegistrationStatus,
	input RegistrationInput,
	sel Selection,
	total int64,
	receiptKey *string,
) (*models.Registration, *string, error) {
	reg, err := s.registrationRepo.FindDraft(ctx, exec, userID, tournamentID)
	if err != nil && !errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil, nil, err
	}

	isNew := reg == nil
	if isNew {
		reg = &models.Registration{UserID: userID, TournamentID: tournamentID}
	}
	reg.Status = status
	reg.PondID, reg.ZoneID = selectedPondZone(sel)
	reg.TotalPaymentCents = total
	reg.AreaIDs = selectedAreaIDs(sel)
	if bank := strings.TrimSpace(input.BankAccountNo); bank != "" {
		reg.BankAccountNo = &bank
	}
	var staleReceipt *string
	if receiptKey != nil {
		if reg.PaymentReceipt != nil && *reg.PaymentReceipt != *receiptKey {
			staleReceipt = reg.PaymentReceipt
		}
		reg.PaymentReceipt = receiptKey
	}

	if isNew {
		err = s.registrationRepo.Create(ctx, exec, reg)
	} else {
		err = s.registrationRepo.Update(ctx, exec, reg, models.RegistrationDraft)
	}
	if err != nil {
		return nil, nil, err
	}
	return reg, staleReceipt, nil
}

func (s *registrationService) UpdateStatus(ctx context.Context, organizerID, registrationID int, status models.RegistrationStatus) (*models.Registration, error) {
	switch status {
	case models.RegistrationPending, models.RegistrationConfirmed, models.RegistrationRejected, models.RegistrationCancelled:
	default:
		return nil, ErrInvalidRegistrationStatus
	}

	var reg *models.Registration
	var previous models.RegistrationStatus
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		reg, err = s.registrationRepo.GetByID(ctx, exec, registrationID)
		if err != nil {
			return err
		}
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, reg.TournamentID)
		if err != nil {
			return err
		}
		// Чужие заявки и черновики организатору не видны.
		if tournament.OrganizerID != organizerID || reg.Status == models.RegistrationDraft {
			return ErrRegistrationNotFound
		}
		if tournament.Status.Closed() {
			return ErrTournamentClosed
		}
		if !models.CanTransition(reg.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, reg.Status, status)
		}
		if err := s.registrationRepo.UpdateStatus(ctx, exec, reg.ID, reg.Status, status); err != nil {
			if errors.Is(err, repositories.ErrRegistrationStatusChanged) {
				return fmt.Errorf("%w: registration %d was changed concurrently", ErrInvalidStatusTransition, reg.ID)
			}
			return err
		}
		previous = reg.Status
		reg.Status = status
		return nil
	})
	if err != nil {
		return nil, s.translateError(err)
	}

	s.logger.InfoContext(ctx, "registration status changed",
		slog.Int("registration_id", reg.ID),
		slog.Int("tournament_id", reg.TournamentID),
		slog.String("from", string(previous)),
		slog.String("to", string(status)))

	s.publish(ctx, events.New(events.RegistrationStatusChanged, events.RegistrationStatusChangedPayload{
		RegistrationID: reg.ID,
		TournamentID:   reg.TournamentID,
		UserID:         reg.UserID,
		From:           string(previous),
		To:             string(status),
	}))
	if previous == models.RegistrationConfirmed || status == models.RegistrationConfirmed {
		if s.leaderboard != nil {
			s.leaderboard.PublishUpdate(ctx, reg.TournamentID)
		}
	}

	if err := s.attachAreaIDs(ctx, []*models.Registration{reg}); err != nil {
		return nil, err
	}
	populateRegistrationDetails(reg, s.uploader)
	return reg, nil
}

func (s *registrationService) GetDraft(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	reg, err := s.registrationRepo.FindDraft(ctx, nil, userID, tournamentID)
	if err != nil {
		return nil, s.translateError(err)
	}
	if err := s.attachAreaIDs(ctx, []*models.Registration{reg}); err != nil {
		return nil, err
	}
	populateRegistrationDetails(reg, s.uploader)
	return reg, nil
}

func (s *registrationService) ListMine(ctx context.Context, userID int) ([]*models.Registration, error) {
	regs, err := s.registrationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for user %d: %w", userID, err)
	}
	if err := s.attachAreaIDs(ctx, regs); err != nil {
		return nil, err
	}
	for _, reg := range regs {
		populateRegistrationDetails(reg, s.uploader)
	}
	return regs, nil
}

func (s *registrationService) ListByTournament(ctx context.Context, organizerID, tournamentID int, status *models.RegistrationStatus) ([]*models.Registration, error) {
	if status != nil && (!status.Valid() || *status == models.RegistrationDraft) {
		return nil, ErrInvalidRegistrationStatus
	}
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, tournamentID); err != nil {
		return nil, err
	}
	regs, err := s.registrationRepo.ListByTournament(ctx, tournamentID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for tournament %d: %w", tournamentID, err)
	}
	if err := s.attachAreaIDs(ctx, regs); err != nil {
		return nil, err
	}
	for _, reg := range regs {
		populateRegistrationDetails(reg, s.uploader)
	}
	return regs, nil
}

func (s *registrationService) PurgeStaleDrafts(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := s.registrationRepo.DeleteStaleDrafts(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "stale registration drafts purged", slog.Int64("count", n), slog.Duration("ttl", ttl))
	}
	return n, nil
}

func (s *registrationService) attachAreaIDs(ctx context.Context, regs []*models.Registration) error {
	ids := make([]int, 0, len(regs))
	for _, reg := range regs {
		ids = append(ids, reg.ID)
	}
	byReg, err := s.registrationRepo.ListAreaIDs(ctx, nil, ids)
	if err != nil {
		return fmt.Errorf("failed to load area selections: %w", err)
	}
	for _, reg := range regs {
		reg.AreaIDs = byReg[reg.ID]
	}
	return nil
}

func (s *registrationService) uploadReceipt(ctx context.Context, input RegistrationInput) (*string, error) {
	if input.Receipt == nil || s.uploader == nil {
		return nil, nil
	}
	key, err := uploadFile(ctx, s.uploader, "receipts/"+strconv.Itoa(input.TournamentID), input.Receipt, true)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *registrationService) discardUpload(ctx context.Context, key *string) {
	if key == nil || s.uploader == nil {
		return
	}
	if err := s.uploader.Delete(context.WithoutCancel(ctx), *key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete orphaned receipt", slog.String("key", *key), slog.Any("error", err))
	}
}

func (s *registrationService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", slog.String("type", event.Type), slog.Any("error", err))
	}
}

func (s *registrationService) translateError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrRegistrationTournamentInvalid):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrRegistrationNotFound):
		return ErrRegistrationNotFound
	case errors.Is(err, repositories.ErrRegistrationActiveExists),
		errors.Is(err, repositories.ErrRegistrationDraftExists),
		errors.Is(err, repositories.ErrRegistrationStatusChanged):
		return ErrRegistrationConflict
	case errors.Is(err, repositories.ErrRegistrationAreaInvalid):
		return ErrAreasUnavailable
	}
	return err
}

func selectedAreaIDs(sel Selection) []int {
	if choice, ok := sel.(AreaChoice); ok {
		return choice.AreaIDs
	}
	return []int{}
}

func selectedPondZone(sel Selection) (*int, *int) {
	switch s := sel.(type) {
	case PondChoice:
		id := s.PondID
		return &id, nil
	case ZoneChoice:
		id := s.ZoneID
		return nil, &id
	}
	return nil, nil
}
