package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/fishing-tournament/repositories"
)

// AvailabilityChecker сообщает, свободны ли места прямо сейчас.
// Место свободно, если организатор не закрыл его и его не держит ни одна
// регистрация в статусе pending или confirmed.
type AvailabilityChecker struct {
	areas repositories.AreaRepository
}

func NewAvailabilityChecker(areas repositories.AreaRepository) *AvailabilityChecker {
	return &AvailabilityChecker{areas: areas}
}

// Check возвращает доступность каждого места. Места другого турнира считаются отсутствующими.
func (c *AvailabilityChecker) Check(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, areaIDs []int) (map[int]bool, error) {
	ids, err := uniqueIDs(areaIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoAreasSelected
	}

	rows, err := c.areas.GetAvailability(ctx, exec, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check area availability: %w", err)
	}
	if len(rows) != len(ids) {
		return nil, fmt.Errorf("%w: requested %d, found %d", ErrAreaNotFound, len(ids), len(rows))
	}

	result := make(map[int]bool, len(rows))
	for _, row := range rows {
		if row.TournamentID != tournamentID {
			return nil, fmt.Errorf("%w: area %d", ErrAreaNotFound, row.AreaID)
		}
		result[row.AreaID] = row.Free()
	}
	return result, nil
}
