package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/fishing-tournament/models"
	"github.com/Dosada05/fishing-tournament/repositories"
)

// Selection - выбор участника. Конкретный вариант определяется типом структуры турнира:
// PondChoice (pond_only), ZoneChoice (pond_zone), AreaChoice (pond_zone_area) или NoChoice,
// если нужная часть выбора не передана.
type Selection interface {
	isSelection()
}

type PondChoice struct{ PondID int }

type ZoneChoice struct{ ZoneID int }

type AreaChoice struct{ AreaIDs []int }

type NoChoice struct{}

func (PondChoice) isSelection() {}
func (ZoneChoice) isSelection() {}
func (AreaChoice) isSelection() {}
func (NoChoice) isSelection() {}

// SelectionFor строит выбор для структуры турнира. Id места должны быть уже без дубликатов.
func SelectionFor(structure models.StructureType, pondID, zoneID *int, areaIDs []int) (Selection, error) {
	switch structure {
	case models.StructurePondOnly:
		if pondID == nil || *pondID <= 0 {
			return NoChoice{}, nil
		}
		return PondChoice{PondID: *pondID}, nil
	case models.StructurePondZone:
		if zoneID == nil || *zoneID <= 0 {
			return NoChoice{}, nil
		}
		return ZoneChoice{ZoneID: *zoneID}, nil
	case models.StructurePondZoneArea:
		if len(areaIDs) == 0 {
			return NoChoice{}, nil
		}
		return AreaChoice{AreaIDs: areaIDs}, nil
	default:
		return nil, ErrInvalidStructureType
	}
}

// PricingResolver считает итоговую стоимость участия по выбору.
type PricingResolver struct {
	ponds repositories.PondRepository
	zones repositories.ZoneRepository
	areas repositories.AreaRepository
}

func NewPricingResolver(ponds repositories.PondRepository, zones repositories.ZoneRepository, areas repositories.AreaRepository) *PricingResolver {
	return &PricingResolver{ponds: ponds, zones: zones, areas: areas}
}

// Total возвращает стоимость в минимальных единицах валюты. Пустой выбор стоит 0.
// Все чтения идут через exec, поэтому внутри транзакции цена считается по тем же данным.
func (p *PricingResolver) Total(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, sel Selection) (int64, error) {
	switch s := sel.(type) {
	case NoChoice:
		return 0, nil
	case PondChoice:
		pond, err := p.ponds.GetByID(ctx, exec, s.PondID)
		if err != nil {
			if errors.Is(err, repositories.ErrPondNotFound) {
				return 0, ErrPondNotFound
			}
			return 0, fmt.Errorf("failed to resolve pond price: %w", err)
		}
		if pond.TournamentID != tournamentID {
			return 0, ErrPondNotFound
		}
		return pond.PriceCents, nil
	case ZoneChoice:
		zone, err := p.zones.GetByID(ctx, exec, s.ZoneID)
		if err != nil {
			if errors.Is(err, repositories.ErrZoneNotFound) {
				return 0, ErrZoneNotFound
			}
			return 0, fmt.Errorf("failed to resolve zone price: %w", err)
		}
		if zone.TournamentID != tournamentID {
			return 0, ErrZoneNotFound
		}
		return zone.PriceCents, nil
	case AreaChoice:
		rows, err := p.areas.GetAvailability(ctx, exec, s.AreaIDs)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve area prices: %w", err)
		}
		return sumAreaPrices(tournamentID, s.AreaIDs, rows)
	default:
		return 0, fmt.Errorf("unsupported selection type %T", sel)
	}
}

// sumAreaPrices суммирует цены мест; любое не найденное место (или место чужого турнира) - ErrAreaNotFound.
func sumAreaPrices(tournamentID int, areaIDs []int, rows []models.AreaAvailability) (int64, error) {
	byID := make(map[int]models.AreaAvailability, len(rows))
	for _, row := range rows {
		if row.TournamentID == tournamentID {
			byID[row.AreaID] = row
		}
	}
	var total int64
	for _, id := range areaIDs {
		row, ok := byID[id]
		if !ok {
			return 0, fmt.Errorf("%w: id %d", ErrAreaNotFound, id)
		}
		total += row.PriceCents
	}
	return total, nil
}
