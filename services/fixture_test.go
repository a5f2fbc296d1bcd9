package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/Dosada05/fishing-tournament/models"
)

type fixture struct {
	db          *memDB
	tx          *serialTx
	uploader    *fakeUploader
	publisher   *recordingPublisher
	broadcaster *recordingBroadcaster

	tournamentRepo   fakeTournamentRepo
	pondRepo         fakePondRepo
	zoneRepo         fakeZoneRepo
	areaRepo         fakeAreaRepo
	registrationRepo fakeRegistrationRepo

	auth          AuthService
	tournaments   TournamentService
	layout        LayoutService
	registrations RegistrationService
	catches       CatchService
	leaderboard   LeaderboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, RegistrationServiceConfig{})
}

func newFixtureWithConfig(t *testing.T, cfg RegistrationServiceConfig) *fixture {
	t.Helper()
	db := newMemDB()
	f := &fixture{
		db:               db,
		tx:               &serialTx{},
		uploader:         newFakeUploader(),
		publisher:        &recordingPublisher{},
		broadcaster:      &recordingBroadcaster{},
		tournamentRepo:   fakeTournamentRepo{db},
		pondRepo:         fakePondRepo{db},
		zoneRepo:         fakeZoneRepo{db},
		areaRepo:         fakeAreaRepo{db},
		registrationRepo: fakeRegistrationRepo{db},
	}
	logger := discardLogger()

	f.leaderboard = NewLeaderboardService(f.tournamentRepo, fakeLeaderboardRepo{db}, f.broadcaster, logger)
	f.auth = NewAuthService(fakeUserRepo{db}, logger)
	f.tournaments = NewTournamentService(f.tournamentRepo, f.pondRepo, f.zoneRepo, f.areaRepo,
		NewAvailabilityChecker(f.areaRepo), f.leaderboard, logger)
	f.layout = NewLayoutService(f.tournamentRepo, f.pondRepo, f.zoneRepo, f.areaRepo)
	f.registrations = NewRegistrationService(
		f.tx,
		f.tournamentRepo,
		f.registrationRepo,
		f.areaRepo,
		NewPricingResolver(f.pondRepo, f.zoneRepo, f.areaRepo),
		f.uploader,
		f.publisher,
		f.leaderboard,
		logger,
		cfg,
	)
	f.catches = NewCatchService(fakeCatchRepo{db}, f.tournamentRepo, f.registrationRepo, f.uploader, f.publisher, f.leaderboard, logger)
	return f
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: models.RoleUser}
	if err := (fakeUserRepo{f.db}).Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (f *fixture) tournament(t *testing.T, organizerID int, structure models.StructureType, status models.TournamentStatus) *models.Tournament {
	t.Helper()
	f.db.mu.Lock()
	n := f.db.nextID + 1
	f.db.mu.Unlock()
	start := time.Now().Add(24 * time.Hour).UTC()
	tour := &models.Tournament{
		OrganizerID:      organizerID,
		Name:             "Spring Cup",
		StructureType:    structure,
		Status:           status,
		StartTime:        start,
		EndTime:          start.Add(8 * time.Hour),
		RegistrationLink: "reg-" + strconv.Itoa(n),
		LeaderboardLink:  "lb-" + strconv.Itoa(n),
	}
	if err := f.tournamentRepo.Create(context.Background(), tour); err != nil {
		t.Fatalf("seed tournament: %v", err)
	}
	return tour
}

func (f *fixture) pond(t *testing.T, tournamentID int, price int64) *models.Pond {
	t.Helper()
	p := &models.Pond{TournamentID: tournamentID, Name: "North pond", PriceCents: price}
	if err := f.pondRepo.Create(context.Background(), p); err != nil {
		t.Fatalf("seed pond: %v", err)
	}
	return p
}

func (f *fixture) zone(t *testing.T, pondID, number int, price int64) *models.Zone {
	t.Helper()
	z := &models.Zone{PondID: pondID, ZoneNumber: number, PriceCents: price}
	if err := f.zoneRepo.Create(context.Background(), z); err != nil {
		t.Fatalf("seed zone: %v", err)
	}
	return z
}

func (f *fixture) area(t *testing.T, zoneID, number int, price int64) *models.Area {
	t.Helper()
	a := &models.Area{ZoneID: zoneID, AreaNumber: number, PriceCents: price, IsAvailable: true}
	if err := f.areaRepo.Create(context.Background(), a); err != nil {
		t.Fatalf("seed area: %v", err)
	}
	return a
}

// areaTournament - активный турнир pond_zone_area с одним водоёмом, одной зоной и местами по ценам prices.
func (f *fixture) areaTournament(t *testing.T, organizerID int, prices ...int64) (*models.Tournament, []*models.Area) {
	t.Helper()
	tour := f.tournament(t, organizerID, models.StructurePondZoneArea, models.TournamentActive)
	p := f.pond(t, tour.ID, 0)
	z := f.zone(t, p.ID, 1, 0)
	areas := make([]*models.Area, 0, len(prices))
	for i, price := range prices {
		areas = append(areas, f.area(t, z.ID, i+1, price))
	}
	return tour, areas
}

func (f *fixture) setRegistrationStatus(t *testing.T, id int, status models.RegistrationStatus) {
	t.Helper()
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	reg, ok := f.db.registrations[id]
	if !ok {
		t.Fatalf("registration %d not found", id)
	}
	reg.Status = status
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
