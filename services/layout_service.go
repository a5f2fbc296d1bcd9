package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/fishing-tournament/models"
	"github.com/Dosada05/fishing-tournament/repositories"
)

type PondInput struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

type ZoneInput struct {
	ZoneNumber int     `json:"zone_number"`
	Name       *string `json:"name"`
	PriceCents int64   `json:"price_cents"`
}

type AreaInput struct {
	AreaNumber  int   `json:"area_number"`
	PriceCents  int64 `json:"price_cents"`
	IsAvailable *bool `json:"is_available"`
}

// LayoutService управляет структурой турнира: водоёмы, зоны, места.
// Все операции доступны только организатору-владельцу турнира.
type LayoutService interface {
	CreatePond(ctx context.Context, organizerID, tournamentID int, input PondInput) (*models.Pond, error)
	ListPonds(ctx context.Context, organizerID, tournamentID int) ([]models.Pond, error)
	UpdatePond(ctx context.Context, organizerID, pondID int, input PondInput) (*models.Pond, error)
	DeletePond(ctx context.Context, organizerID, pondID int) error

	CreateZone(ctx context.Context, organizerID, pondID int, input ZoneInput) (*models.Zone, error)
	ListZones(ctx context.Context, organizerID, pondID int) ([]models.Zone, error)
	UpdateZone(ctx context.Context, organizerID, zoneID int, input ZoneInput) (*models.Zone, error)
	DeleteZone(ctx context.Context, organizerID, zoneID int) error

	CreateArea(ctx context.Context, organizerID, zoneID int, input AreaInput) (*models.Area, error)
	ListAreas(ctx context.Context, organizerID, zoneID int) ([]models.Area, error)
	UpdateArea(ctx context.Context, organizerID, areaID int, input AreaInput) (*models.Area, error)
	DeleteArea(ctx context.Context, organizerID, areaID int) error
}

type layoutService struct {
	tournamentRepo repositories.TournamentRepository
	pondRepo       repositories.PondRepository
	zoneRepo       repositories.ZoneRepository
	areaRepo       repositories.AreaRepository
}

func NewLayoutService(
	tournamentRepo repositories.TournamentRepository,
	pondRepo repositories.PondRepository,
	zoneRepo repositories.ZoneRepository,
	areaRepo repositories.AreaRepository,
) LayoutService {
	return &layoutService{
		tournamentRepo: tournamentRepo,
		pondRepo:       pondRepo,
		zoneRepo:       zoneRepo,
		areaRepo:       areaRepo,
	}
}

// editableTournament проверяет владельца; закрытые турниры менять нельзя.
func (s *layoutService) editableTournament(ctx context.Context, organizerID, tournamentID int) (*models.Tournament, error) {
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status.Closed() {
		return nil, ErrTournamentClosed
	}
	return tournament, nil
}

func (s *layoutService) ownedPond(ctx context.Context, organizerID, pondID int) (*models.Pond, *models.Tournament, error) {
	pond, err := s.pondRepo.GetByID(ctx, nil, pondID)
	if err != nil {
		if errors.Is(err, repositories.ErrPondNotFound) {
			return nil, nil, ErrPondNotFound
		}
		return nil, nil, fmt.Errorf("failed to get pond %d: %w", pondID, err)
	}
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, pond.TournamentID)
	if err != nil {
		return nil, nil, err
	}
	return pond, tournament, nil
}

func (s *layoutService) ownedZone(ctx context.Context, organizerID, zoneID int) (*models.Zone, *models.Tournament, error) {
	zone, err := s.zoneRepo.GetByID(ctx, nil, zoneID)
	if err != nil {
		if errors.Is(err, repositories.ErrZoneNotFound) {
			return nil, nil, ErrZoneNotFound
		}
		return nil, nil, fmt.Errorf("failed to get zone %d: %w", zoneID, err)
	}
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, zone.TournamentID)
	if err != nil {
		return nil, nil, err
	}
	return zone, tournament, nil
}

func (s *layoutService) ownedArea(ctx context.Context, organizerID, areaID int) (*models.Area, *models.Tournament, error) {
	area, err := s.areaRepo.GetByID(ctx, nil, areaID)
	if err != nil {
		if errors.Is(err, repositories.ErrAreaNotFound) {
			return nil, nil, ErrAreaNotFound
		}
		return nil, nil, fmt.Errorf("failed to get area %d: %w", areaID, err)
	}
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, area.TournamentID)
	if err != nil {
		return nil, nil, err
	}
	return area, tournament, nil
}

func validatePondInput(input *PondInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return ErrNameRequired
	}
	if input.PriceCents < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func validateZoneInput(input *ZoneInput) error {
	if input.ZoneNumber <= 0 {
		return ErrInvalidNumber
	}
	if input.PriceCents < 0 {
		return ErrInvalidPrice
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			input.Name = nil
		} else {
			input.Name = &name
		}
	}
	return nil
}

func validateAreaInput(input AreaInput) error {
	if input.AreaNumber <= 0 {
		return ErrInvalidNumber
	}
	if input.PriceCents < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (s *layoutService) CreatePond(ctx context.Context, organizerID, tournamentID int, input PondInput) (*models.Pond, error) {
	if err := validatePondInput(&input); err != nil {
		return nil, err
	}
	if _, err := s.editableTournament(ctx, organizerID, tournamentID); err != nil {
		return nil, err
	}
	pond := &models.Pond{TournamentID: tournamentID, Name: input.Name, PriceCents: input.PriceCents}
	if err := s.pondRepo.Create(ctx, pond); err != nil {
		if errors.Is(err, repositories.ErrPondTournamentInvalid) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to create pond: %w", err)
	}
	return pond, nil
}

func (s *layoutService) ListPonds(ctx context.Context, organizerID, tournamentID int) ([]models.Pond, error) {
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, organizerID, tournamentID); err != nil {
		return nil, err
	}
	ponds, err := s.pondRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ponds: %w", err)
	}
	return ponds, nil
}

func (s *layoutService) UpdatePond(ctx context.Context, organizerID, pondID int, input PondInput) (*models.Pond, error) {
	if err := validatePondInput(&input); err != nil {
		return nil, err
	}
	pond, tournament, err := s.ownedPond(ctx, organizerID, pondID)
	if err != nil {
		return nil, err
	}
	if tournament.Status.Closed() {
		return nil, ErrTournamentClosed
	}
	pond.Name = input.Name
	pond.PriceCents = input.PriceCents
	if err := s.pondRepo.Update(ctx, pond); err != nil {
		if errors.Is(err, repositories.ErrPondNotFound) {
			return nil, ErrPondNotFound
		}
		return nil, fmt.Errorf("failed to update pond %d: %w", pondID, err)
	}
	return pond, nil
}

func (s *layoutService) DeletePond(ctx context.Context, organizerID, pondID int) error {
	_, tournament, err := s.ownedPond(ctx, organizerID, pondID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentDraft {
		return ErrLayoutLocked
	}
	if err := s.pondRepo.Delete(ctx, pondID); err != nil {
		if errors.Is(err, repositories.ErrPondNotFound) {
			return ErrPondNotFound
		}
		return fmt.Errorf("failed to delete pond %d: %w", pondID, err)
	}
	return nil
}

func (s *layoutService) CreateZone(ctx context.Context, organizerID, pondID int, input ZoneInput) (*models.Zone, error) {
	if err := validateZoneInput(&input); err != nil {
		return nil, err
	}
	_, tournament, err := s.ownedPond(ctx, organizerID, pondID)
	if err != nil {
		return nil, err
	}
	if tournament.Status.Closed() {
		return nil, ErrTournamentClosed
	}
	zone := &models.Zone{PondID: pondID, ZoneNumber: input.ZoneNumber, Name: input.Name, PriceCents: input.PriceCents}
	if err := s.zoneRepo.Create(ctx, zone); err != nil {
		switch {
		case errors.Is(err, repositories.ErrZoneNumberConflict):
			return nil, ErrZoneNumberConflict
		case errors.Is(err, repositories.ErrZonePondInvalid):
			return nil, ErrPondNotFound
		}
		return nil, fmt.Errorf("failed to create zone: %w", err)
	}
	return zone, nil
}

func (s *layoutService) ListZones(ctx context.Context, organizerID, pondID int) ([]models.Zone, error) {
	if _, _, err := s.ownedPond(ctx, organizerID, pondID); err != nil {
		return nil, err
	}
	zones, err := s.zoneRepo.ListByPond(ctx, pondID)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	return zones, nil
}

func (s *layoutService) UpdateZone(ctx context.Context, organizerID, zoneID int, input ZoneInput) (*models.Zone, error) {
	if err := validateZoneInput(&input); err != nil {
		return nil, err
	}
	zone, tournament, err := s.ownedZone(ctx, organizerID, zoneID)
	if err != nil {
		return nil, err
	}
	if tournament.Status.Closed() {
		return nil, ErrTournamentClosed
	}
	zone.ZoneNumber = input.ZoneNumber
	zone.Name = input.Name
	zone.PriceCents = input.PriceCents
	if err := s.zoneRepo.Update(ctx, zone); err != nil {
		switch {
		case errors.Is(err, repositories.ErrZoneNotFound):
			return nil, ErrZoneNotFound
		case errors.Is(err, repositories.ErrZoneNumberConflict):
			return nil, ErrZoneNumberConflict
		}
		return nil, fmt.Errorf("failed to update zone %d: %w", zoneID, err)
	}
	return zone, nil
}

func (s *layoutService) DeleteZone(ctx context.Context, organizerID, zoneID int) error {
	_, tournament, err := s.ownedZone(ctx, organizerID, zoneID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentDraft {
		return ErrLayoutLocked
	}
	if err := s.zoneRepo.Delete(ctx, zoneID); err != nil {
		if errors.Is(err, repositories.ErrZoneNotFound) {
			return ErrZoneNotFound
		}
		return fmt.Errorf("failed to delete zone %d: %w", zoneID, err)
	}
	return nil
}

func (s *layoutService) CreateArea(ctx context.Context, organizerID, zoneID int, input AreaInput) (*models.Area, error) {
	if err := validateAreaInput(input); err != nil {
		return nil, err
	}
	_, tournament, err := s.ownedZone(ctx, organizerID, zoneID)
	if err != nil {
		return nil, err
	}
	if tournament.Status.Closed() {
		return nil, ErrTournamentClosed
	}
	area := &models.Area{ZoneID: zoneID, AreaNumber: input.AreaNumber, PriceCents: input.PriceCents, IsAvailable: true}
	if input.IsAvailable != nil {
		area.IsAvailable = *input.IsAvailable
	}
	if err := s.areaRepo.Create(ctx, area); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAreaNumberConflict):
			return nil, ErrAreaNumberConflict
		case errors.Is(err, repositories.ErrAreaZoneInvalid):
			return nil, ErrZoneNotFound
		}
		return nil, fmt.Errorf("failed to create area: %w", err)
	}
	return area, nil
}

func (s *layoutService) ListAreas(ctx context.Context, organizerID, zoneID int) ([]models.Area, error) {
	if _, _, err := s.ownedZone(ctx, organizerID, zoneID); err != nil {
		return nil, err
	}
	areas, err := s.areaRepo.ListByZone(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	return areas, nil
}

func (s *layoutService) UpdateArea(ctx context.Context, organizerID, areaID int, input AreaInput) (*models.Area, error) {
	if err := validateAreaInput(input); err != nil {
		return nil, err
	}
	area, tournament, err := s.ownedArea(ctx, organizerID, areaID)
	if err != nil {
		return nil, err
	}
	if tournament.Status.Closed() {
		return nil, ErrTournamentClosed
	}
	area.AreaNumber = input.AreaNumber
	area.PriceCents = input.PriceCents
	if input.IsAvailable != nil {
		area.IsAvailable = *input.IsAvailable
	}
	if err := s.areaRepo.Update(ctx, area); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAreaNotFound):
			return nil, ErrAreaNotFound
		case errors.Is(err, repositories.ErrAreaNumberConflict):
			return nil, ErrAreaNumberConflict
		}
		return nil, fmt.Errorf("failed to update area %d: %w", areaID, err)
	}
	return area, nil
}

// DeleteArea удаляет место, если его не держит активная заявка.
func (s *layoutService) DeleteArea(ctx context.Context, organizerID, areaID int) error {
	_, tournament, err := s.ownedArea(ctx, organizerID, areaID)
	if err != nil {
		return err
	}
	if tournament.Status.Closed() {
		return ErrTournamentClosed
	}
	rows, err := s.areaRepo.GetAvailability(ctx, nil, []int{areaID})
	if err != nil {
		return fmt.Errorf("failed to check area %d holders: %w", areaID, err)
	}
	if len(rows) == 1 && rows[0].ActiveHolders > 0 {
		return ErrAreaInUse
	}
	if err := s.areaRepo.Delete(ctx, areaID); err != nil {
		if errors.Is(err, repositories.ErrAreaNotFound) {
			return ErrAreaNotFound
		}
		return fmt.Errorf("failed to delete area %d: %w", areaID, err)
	}
	return nil
}
