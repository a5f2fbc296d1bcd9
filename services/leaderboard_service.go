package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Dosada05/fishing-tournament/live"
	"github.com/Dosada05/fishing-tournament/models"
	"github.com/Dosada05/fishing-tournament/repositories"
)

// Broadcaster рассылает сообщение подписчикам комнаты (см. live.Hub).
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type LeaderboardService interface {
	GetByLink(ctx context.Context, link string) (*models.Leaderboard, error)
	Get(ctx context.Context, tournamentID int) (*models.Leaderboard, error)
	// PublishUpdate пересчитывает таблицу и рассылает её подписчикам турнира.
	PublishUpdate(ctx context.Context, tournamentID int)
}

type leaderboardService struct {
	tournamentRepo  repositories.TournamentRepository
	leaderboardRepo repositories.LeaderboardRepository
	broadcaster     Broadcaster
	logger          *slog.Logger
}

func NewLeaderboardService(
	tournamentRepo repositories.TournamentRepository,
	leaderboardRepo repositories.LeaderboardRepository,
	broadcaster Broadcaster,
	logger *slog.Logger,
) LeaderboardService {
	return &leaderboardService{
		tournamentRepo:  tournamentRepo,
		leaderboardRepo: leaderboardRepo,
		broadcaster:     broadcaster,
		logger:          logger,
	}
}

func (s *leaderboardService) GetByLink(ctx context.Context, link string) (*models.Leaderboard, error) {
	tournament, err := s.tournamentRepo.GetByLeaderboardLink(ctx, link)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament by leaderboard link: %w", err)
	}
	return s.build(ctx, tournament)
}

func (s *leaderboardService) Get(ctx context.Context, tournamentID int) (*models.Leaderboard, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}
	return s.build(ctx, tournament)
}

func (s *leaderboardService) build(ctx context.Context, tournament *models.Tournament) (*models.Leaderboard, error) {
	rows, err := s.leaderboardRepo.ListRows(ctx, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard for tournament %d: %w", tournament.ID, err)
	}
	return &models.Leaderboard{
		TournamentID:   tournament.ID,
		TournamentName: tournament.Name,
		Status:         tournament.Status,
		Entries:        aggregateLeaderboard(rows),
	}, nil
}

func (s *leaderboardService) PublishUpdate(ctx context.Context, tournamentID int) {
	if s.broadcaster == nil {
		return
	}
	board, err := s.Get(ctx, tournamentID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to rebuild leaderboard for broadcast",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}
	s.broadcaster.BroadcastToRoom(live.LeaderboardRoom(tournamentID), live.Message{
		Type:    live.MessageLeaderboardUpdated,
		Payload: board,
		RoomID:  live.LeaderboardRoom(tournamentID),
	})
}

// aggregateLeaderboard сворачивает строки по участникам. Уловы считаются все,
// вес и крупнейший улов - только по одобренным. Сортировка: общий вес по убыванию,
// затем крупнейший улов по убыванию, затем user_id.
func aggregateLeaderboard(rows []models.LeaderboardRow) []models.LeaderboardEntry {
	byUser := make(map[int]*models.LeaderboardEntry)
	order := make([]int, 0)

	for _, row := range rows {
		entry, ok := byUser[row.UserID]
		if !ok {
			entry = &models.LeaderboardEntry{UserID: row.UserID, UserName: row.UserName}
			byUser[row.UserID] = entry
			order = append(order, row.UserID)
		}
		if row.CatchID == nil {
			continue
		}
		entry.TotalCatches++
		if row.ApprovalStatus == models.CatchApproved {
			entry.TotalWeightKg += row.WeightKg
			if row.WeightKg > entry.BiggestCatch {
				entry.BiggestCatch = row.WeightKg
			}
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(order))
	for _, userID := range order {
		entry := *byUser[userID]
		entry.TotalWeightKg = math.Round(entry.TotalWeightKg*1000) / 1000
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalWeightKg != entries[j].TotalWeightKg {
			return entries[i].TotalWeightKg > entries[j].TotalWeightKg
		}
		if entries[i].BiggestCatch != entries[j].BiggestCatch {
			return entries[i].BiggestCatch > entries[j].BiggestCatch
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
