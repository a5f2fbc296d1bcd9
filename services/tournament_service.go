package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/fishing-tournament/models"
	"github.com/Dosada05/fishing-tournament/repositories"
	"github.com/Dosada05/fishing-tournament/utils"
	"golang.org/x/sync/errgroup"
)

const maxLinkAttempts = 3

type CreateTournamentInput struct {
	Name          string               `json:"name"`
	Description   *string              `json:"description"`
	Location      *string              `json:"location"`
	StructureType models.StructureType `json:"structure_type"`
	StartTime     time.Time            `json:"start_time"`
	EndTime       time.Time            `json:"end_time"`
}

type UpdateTournamentInput struct {
	Name          *string               `json:"name"`
	Description   *string               `json:"description"`
	Location      *string               `json:"location"`
	StructureType *models.StructureType `json:"structure_type"`
	StartTime     *time.Time            `json:"start_time"`
	EndTime       *time.Time            `json:"end_time"`
}

type TournamentService interface {
	Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, organizerID, tournamentID int) (*models.Tournament, error)
	ListMine(ctx context.Context, organizerID int) ([]*models.Tournament, error)
	Update(ctx context.Context, organizerID, tournamentID int, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, organizerID, tournamentID int, status models.TournamentStatus) (*models.Tournament, error)
	Delete(ctx context.Context, organizerID, tournamentID int) error
	// GetLayout возвращает турнир с деревом водоём -> зона -> место: флаг организатора и живая доступность (is_free).
	GetLayout(ctx context.Context, organizerID, tournamentID int) (*models.Tournament, error)
	// GetRegistrationView - публичная страница регистрации по ссылке; только для активных турниров.
	GetRegistrationView(ctx context.Context, link string) (*models.Tournament, error)
	CheckAvailability(ctx context.Context, link string, areaIDs []int) (map[int]bool, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	pondRepo       repositories.PondRepository
	zoneRepo       repositories.ZoneRepository
	areaRepo       repositories.AreaRepository
	availability   *AvailabilityChecker
	leaderboard    LeaderboardService
	logger         *slog.Logger
	newLink        func(name string) (string, error)
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	pondRepo repositories.PondRepository,
	zoneRepo repositories.ZoneRepository,
	areaRepo repositories.AreaRepository,
	availability *AvailabilityChecker,
	leaderboard LeaderboardService,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		pondRepo:       pondRepo,
		zoneRepo:       zoneRepo,
		areaRepo:       areaRepo,
		availability:   availability,
		leaderboard:    leaderboard,
		logger:         logger,
		newLink:        utils.NewLinkToken,
	}
}

func validateTournamentTimes(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start_time and end_time are required", ErrValidationFailed)
	}
	if !start.Before(end) {
		return ErrTournamentInvalidDates
	}
	return nil
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.StructureType.Valid() {
		return nil, ErrInvalidStructureType
	}
	if err := validateTournamentTimes(input.StartTime, input.EndTime); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		OrganizerID:   organizerID,
		Name:          name,
		Description:   input.Description,
		Location:      input.Location,
		StructureType: input.StructureType,
		Status:        models.TournamentDraft,
		StartTime:     input.StartTime.UTC(),
		EndTime:       input.EndTime.UTC(),
	}

	var err error
	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		if tournament.RegistrationLink, err = s.newLink(name); err != nil {
			return nil, err
		}
		if tournament.LeaderboardLink, err = s.newLink(name + " leaderboard"); err != nil {
			return nil, err
		}
		err = s.tournamentRepo.Create(ctx, tournament)
		if !errors.Is(err, repositories.ErrTournamentLinkConflict) {
			break
		}
		s.logger.WarnContext(ctx, "tournament link collision, regenerating", slog.Int("attempt", attempt+1))
	}
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentTimeRange) {
			return nil, ErrTournamentInvalidDates
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("organizer_id", organizerID),
		slog.String("structure_type", string(tournament.StructureType)))
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, organizerID, tournamentID int) (*models.Tournament, error) {
	return loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, tournamentID)
}

func (s *tournamentService) ListMine(ctx context.Context, organizerID int) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.ListByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, organizerID, tournamentID int, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status.Closed() {
		return nil, ErrTournamentClosed
	}
	if input.StructureType != nil && *input.StructureType != tournament.StructureType {
		return nil, ErrStructureTypeImmutable
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.Location != nil {
		tournament.Location = input.Location
	}
	if input.StartTime != nil {
		tournament.StartTime = input.StartTime.UTC()
	}
	if input.EndTime != nil {
		tournament.EndTime = input.EndTime.UTC()
	}
	if err := validateTournamentTimes(tournament.StartTime, tournament.EndTime); err != nil {
		return nil, err
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return nil, ErrTournamentNotFound
		case errors.Is(err, repositories.ErrTournamentTimeRange):
			return nil, ErrTournamentInvalidDates
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", tournamentID, err)
	}
	return tournament, nil
}

func (s *tournamentService) UpdateStatus(ctx context.Context, organizerID, tournamentID int, status models.TournamentStatus) (*models.Tournament, error) {
	if !status.Valid() {
		return nil, ErrTournamentInvalidStatus
	}
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, tournamentID)
	if err != nil {
		return nil, err
	}
	if !isValidTournamentTransition(tournament.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, status)
	}
	if tournament.Status == status {
		return tournament, nil
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, tournamentID, status); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to update tournament status: %w", err)
	}

	s.logger.InfoContext(ctx, "tournament status changed",
		slog.Int("tournament_id", tournamentID),
		slog.String("from", string(tournament.Status)),
		slog.String("to", string(status)))

	tournament.Status = status
	if status.Closed() && s.leaderboard != nil {
		s.leaderboard.PublishUpdate(ctx, tournamentID)
	}
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, organizerID, tournamentID int) error {
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, tournamentID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentDraft {
		return ErrTournamentNotDeletable
	}
	if err := s.tournamentRepo.Delete(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %d: %w", tournamentID, err)
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.Int("tournament_id", tournamentID))
	return nil
}

func (s *tournamentService) GetLayout(ctx context.Context, organizerID, tournamentID int) (*models.Tournament, error) {
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, tournamentID)
	if err != nil {
		return nil, err
	}
	if err := s.loadLayout(ctx, tournament, organizerLayout); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) GetRegistrationView(ctx context.Context, link string) (*models.Tournament, error) {
	tournament, err := s.activeByLink(ctx, link)
	if err != nil {
		return nil, err
	}
	if err := s.loadLayout(ctx, tournament, publicLayout); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) CheckAvailability(ctx context.Context, link string, areaIDs []int) (map[int]bool, error) {
	tournament, err := s.activeByLink(ctx, link)
	if err != nil {
		return nil, err
	}
	if tournament.StructureType != models.StructurePondZoneArea {
		return nil, fmt.Errorf("%w: tournament does not use area selection", ErrValidationFailed)
	}
	return s.availability.Check(ctx, nil, tournament.ID, areaIDs)
}

func (s *tournamentService) activeByLink(ctx context.Context, link string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByRegistrationLink(ctx, link)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament by registration link: %w", err)
	}
	if tournament.Status != models.TournamentActive {
		return nil, ErrTournamentNotFound
	}
	return tournament, nil
}

type layoutView int

const (
	// organizerLayout: is_available - флаг организатора, is_free - фактическая доступность.
	organizerLayout layoutView = iota
	// publicLayout: is_available уже учитывает активные выборы мест.
	publicLayout
)

// loadLayout параллельно загружает водоёмы, зоны и доступность мест и собирает дерево.
func (s *tournamentService) loadLayout(ctx context.Context, tournament *models.Tournament, view layoutView) error {
	var (
		ponds []models.Pond
		zones []models.Zone
		areas []models.AreaAvailability
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ponds, err = s.pondRepo.ListByTournament(gCtx, nil, tournament.ID)
		return err
	})
	g.Go(func() error {
		var err error
		zones, err = s.zoneRepo.ListByTournament(gCtx, nil, tournament.ID)
		return err
	})
	g.Go(func() error {
		var err error
		areas, err = s.areaRepo.ListAvailabilityByTournament(gCtx, nil, tournament.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load layout for tournament %d: %w", tournament.ID, err)
	}

	tournament.Ponds = buildLayoutTree(ponds, zones, areas, view)
	return nil
}

// buildLayoutTree раскладывает зоны и места по водоёмам.
func buildLayoutTree(ponds []models.Pond, zones []models.Zone, areas []models.AreaAvailability, view layoutView) []models.Pond {
	areasByZone := make(map[int][]models.Area, len(zones))
	for _, a := range areas {
		free := a.Free()
		area := models.Area{
			ID:           a.AreaID,
			ZoneID:       a.ZoneID,
			TournamentID: a.TournamentID,
			AreaNumber:   a.AreaNumber,
			PriceCents:   a.PriceCents,
			IsAvailable:  a.IsAvailable,
			IsFree:       &free,
		}
		if view == publicLayout {
			area.IsAvailable = free
		}
		areasByZone[a.ZoneID] = append(areasByZone[a.ZoneID], area)
	}

	zonesByPond := make(map[int][]models.Zone, len(ponds))
	for _, z := range zones {
		z.Areas = areasByZone[z.ID]
		if z.Areas == nil {
			z.Areas = []models.Area{}
		}
		zonesByPond[z.PondID] = append(zonesByPond[z.PondID], z)
	}

	tree := make([]models.Pond, 0, len(ponds))
	for _, p := range ponds {
		p.Zones = zonesByPond[p.ID]
		if p.Zones == nil {
			p.Zones = []models.Zone{}
		}
		tree = append(tree, p)
	}
	return tree
}
