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

type CreateCatchInput struct {
	TournamentID int
	WeightKg     float64
	Species      *string
	Photo        *UploadFile
}

type CatchService interface {
	Create(ctx context.Context, userID int, input CreateCatchInput) (*models.Catch, error)
	Review(ctx context.Context, organizerID, catchID int, status models.ApprovalStatus) (*models.Catch, error)
	ListByTournament(ctx context.Context, organizerID, tournamentID int, status *models.ApprovalStatus) ([]*models.Catch, error)
	ListMine(ctx context.Context, userID int, tournamentID *int) ([]*models.Catch, error)
}

type catchService struct {
	catchRepo        repositories.CatchRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	uploader         storage.FileUploader
	publisher        events.Publisher
	leaderboard      LeaderboardService
	logger           *slog.Logger
}

func NewCatchService(
	catchRepo repositories.CatchRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	uploader storage.FileUploader,
	publisher events.Publisher,
	leaderboard LeaderboardService,
	logger *slog.Logger,
) CatchService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &catchService{
		catchRepo:        catchRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		uploader:         uploader,
		publisher:        publisher,
		leaderboard:      leaderboard,
		logger:           logger,
	}
}

func (s *catchService) Create(ctx context.Context, userID int, input CreateCatchInput) (*models.Catch, error) {
	if input.WeightKg <= 0 {
		return nil, ErrCatchWeightInvalid
	}
	if input.Species != nil {
		species := strings.TrimSpace(*input.Species)
		if species == "" {
			input.Species = nil
		} else {
			input.Species = &species
		}
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", input.TournamentID, err)
	}
	if tournament.Status != models.TournamentActive {
		return nil, ErrTournamentNotActive
	}

	reg, err := s.registrationRepo.FindActive(ctx, nil, userID, tournament.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrCatchNotAllowed
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	if reg.Status != models.RegistrationConfirmed {
		return nil, ErrCatchNotAllowed
	}

	catch := &models.Catch{
		RegistrationID: reg.ID,
		TournamentID:   tournament.ID,
		UserID:         userID,
		WeightKg:       input.WeightKg,
		Species:        input.Species,
		ApprovalStatus: models.CatchPending,
	}

	if input.Photo != nil && s.uploader != nil {
		key, err := uploadFile(ctx, s.uploader, "catches/"+strconv.Itoa(tournament.ID), input.Photo, false)
		if err != nil {
			return nil, err
		}
		catch.PhotoKey = &key
	}

	if err := s.catchRepo.Create(ctx, catch); err != nil {
		if catch.PhotoKey != nil {
			if delErr := s.uploader.Delete(context.WithoutCancel(ctx), *catch.PhotoKey); delErr != nil {
				s.logger.WarnContext(ctx, "failed to delete orphaned catch photo", slog.String("key", *catch.PhotoKey), slog.Any("error", delErr))
			}
		}
		switch {
		case errors.Is(err, repositories.ErrCatchWeightInvalid):
			return nil, ErrCatchWeightInvalid
		case errors.Is(err, repositories.ErrCatchRegistrationInvalid):
			return nil, ErrCatchNotAllowed
		}
		return nil, fmt.Errorf("failed to create catch: %w", err)
	}

	s.logger.InfoContext(ctx, "catch submitted",
		slog.Int("catch_id", catch.ID),
		slog.Int("tournament_id", tournament.ID),
		slog.Int("user_id", userID),
		slog.Float64("weight_kg", catch.WeightKg))

	// Неподтверждённый улов меняет только счётчик уловов в таблице.
	if s.leaderboard != nil {
		s.leaderboard.PublishUpdate(ctx, tournament.ID)
	}

	populateCatchDetails(catch, s.uploader)
	return catch, nil
}

func (s *catchService) Review(ctx context.Context, organizerID, catchID int, status models.ApprovalStatus) (*models.Catch, error) {
	if status != models.CatchApproved && status != models.CatchRejected {
		return nil, ErrInvalidApprovalStatus
	}

	catch, err := s.catchRepo.GetByID(ctx, catchID)
	if err != nil {
		if errors.Is(err, repositories.ErrCatchNotFound) {
			return nil, ErrCatchNotFound
		}
		return nil, fmt.Errorf("failed to get catch %d: %w", catchID, err)
	}

	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, catch.TournamentID)
	if err != nil {
		if errors.Is(err, ErrForbiddenOperation) {
			return nil, ErrCatchNotFound
		}
		return nil, err
	}
	if tournament.Status.Closed() {
		return nil, ErrTournamentClosed
	}

	reviewedAt := time.Now().UTC()
	if err := s.catchRepo.UpdateApproval(ctx, catch.ID, status, reviewedAt); err != nil {
		if errors.Is(err, repositories.ErrCatchNotFound) {
			return nil, ErrCatchNotFound
		}
		return nil, fmt.Errorf("failed to update catch %d: %w", catch.ID, err)
	}
	catch.ApprovalStatus = status
	catch.ReviewedAt = &reviewedAt

	s.logger.InfoContext(ctx, "catch reviewed",
		slog.Int("catch_id", catch.ID),
		slog.Int("tournament_id", catch.TournamentID),
		slog.String("status", string(status)))

	if err := s.publisher.Publish(ctx, events.New(events.CatchReviewed, events.CatchReviewedPayload{
		CatchID:      catch.ID,
		TournamentID: catch.TournamentID,
		UserID:       catch.UserID,
		WeightKg:     catch.WeightKg,
		Status:       string(status),
	})); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", slog.String("type", events.CatchReviewed), slog.Any("error", err))
	}
	if s.leaderboard != nil {
		s.leaderboard.PublishUpdate(ctx, catch.TournamentID)
	}

	populateCatchDetails(catch, s.uploader)
	return catch, nil
}

func (s *catchService) ListByTournament(ctx context.Context, organizerID, tournamentID int, status *models.ApprovalStatus) ([]*models.Catch, error) {
	if status != nil && !status.Valid() {
		return nil, ErrInvalidApprovalStatus
	}
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, tournamentID); err != nil {
		return nil, err
	}
	catches, err := s.catchRepo.List(ctx, repositories.CatchFilter{TournamentID: &tournamentID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list catches for tournament %d: %w", tournamentID, err)
	}
	for _, c := range catches {
		populateCatchDetails(c, s.uploader)
	}
	return catches, nil
}

func (s *catchService) ListMine(ctx context.Context, userID int, tournamentID *int) ([]*models.Catch, error) {
	catches, err := s.catchRepo.List(ctx, repositories.CatchFilter{TournamentID: tournamentID, UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list catches for user %d: %w", userID, err)
	}
	for _, c := range catches {
		populateCatchDetails(c, s.uploader)
	}
	return catches, nil
}
