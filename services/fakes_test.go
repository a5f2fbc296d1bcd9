package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/fishing-tournament/events"
	"github.com/Dosada05/fishing-tournament/models"
	"github.com/Dosada05/fishing-tournament/repositories"
	"github.com/Dosada05/fishing-tournament/storage"
)

// memDB - общее in-memory хранилище для фейковых репозиториев.
type memDB struct {
	mu     sync.Mutex
	nextID int

	users         map[int]*models.User
	tournaments   map[int]*models.Tournament
	ponds         map[int]*models.Pond
	zones         map[int]*models.Zone
	areas         map[int]*models.Area
	registrations map[int]*models.Registration
	selections    map[int][]int
	catches       map[int]*models.Catch

	// concurrentCommit выполняется один раз сразу после чтения строки регистрации
	// (FindDraft, GetByID) и изображает чужую транзакцию, закоммиченную между чтением и записью.
	concurrentCommit func()
}

func newMemDB() *memDB {
	return &memDB{
		users:         make(map[int]*models.User),
		tournaments:   make(map[int]*models.Tournament),
		ponds:         make(map[int]*models.Pond),
		zones:         make(map[int]*models.Zone),
		areas:         make(map[int]*models.Area),
		registrations: make(map[int]*models.Registration),
		selections:    make(map[int][]int),
		catches:       make(map[int]*models.Catch),
	}
}

func (db *memDB) id() int {
	db.nextID++
	return db.nextID
}

func (db *memDB) runConcurrentCommit() {
	db.mu.Lock()
	fn := db.concurrentCommit
	db.concurrentCommit = nil
	db.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serialTx исполняет транзакции строго по одной, как это делают блокировки строк мест.
type serialTx struct {
	mu sync.Mutex
}

func (t *serialTx) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}

// --- users ---

type fakeUserRepo struct{ db *memDB }

func (r fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.db.id()
	user.CreatedAt = time.Now()
	stored := *user
	r.db.users[user.ID] = &stored
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

// --- tournaments ---

type fakeTournamentRepo struct{ db *memDB }

func (r fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.tournaments {
		if existing.RegistrationLink == t.RegistrationLink || existing.LeaderboardLink == t.LeaderboardLink {
			return repositories.ErrTournamentLinkConflict
		}
	}
	t.ID = r.db.id()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	r.db.tournaments[t.ID] = &stored
	return nil
}

func (r fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r fakeTournamentRepo) byLink(match func(*models.Tournament) bool) (*models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.tournaments {
		if match(t) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r fakeTournamentRepo) GetByRegistrationLink(_ context.Context, link string) (*models.Tournament, error) {
	return r.byLink(func(t *models.Tournament) bool { return t.RegistrationLink == link })
}

func (r fakeTournamentRepo) GetByLeaderboardLink(_ context.Context, link string) (*models.Tournament, error) {
	return r.byLink(func(t *models.Tournament) bool { return t.LeaderboardLink == link })
}

func (r fakeTournamentRepo) ListByOrganizer(_ context.Context, organizerID int) ([]*models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []*models.Tournament
	for _, t := range r.db.tournaments {
		if t.OrganizerID == organizerID {
			copied := *t
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r fakeTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	stored := *t
	r.db.tournaments[t.ID] = &stored
	return nil
}

func (r fakeTournamentRepo) UpdateStatus(_ context.Context, id int, status models.TournamentStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r fakeTournamentRepo) Delete(_ context.Context, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.db.tournaments, id)
	return nil
}

// --- ponds ---

type fakePondRepo struct{ db *memDB }

func (r fakePondRepo) Create(_ context.Context, p *models.Pond) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tournaments[p.TournamentID]; !ok {
		return repositories.ErrPondTournamentInvalid
	}
	p.ID = r.db.id()
	stored := *p
	r.db.ponds[p.ID] = &stored
	return nil
}

func (r fakePondRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Pond, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.ponds[id]
	if !ok {
		return nil, repositories.ErrPondNotFound
	}
	copied := *p
	return &copied, nil
}

func (r fakePondRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Pond, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []models.Pond
	for _, p := range r.db.ponds {
		if p.TournamentID == tournamentID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r fakePondRepo) Update(_ context.Context, p *models.Pond) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.ponds[p.ID]; !ok {
		return repositories.ErrPondNotFound
	}
	stored := *p
	r.db.ponds[p.ID] = &stored
	return nil
}

func (r fakePondRepo) Delete(_ context.Context, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.ponds[id]; !ok {
		return repositories.ErrPondNotFound
	}
	delete(r.db.ponds, id)
	return nil
}

// --- zones ---

type fakeZoneRepo struct{ db *memDB }

func (r fakeZoneRepo) Create(_ context.Context, z *models.Zone) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	pond, ok := r.db.ponds[z.PondID]
	if !ok {
		return repositories.ErrZonePondInvalid
	}
	for _, existing := range r.db.zones {
		if existing.PondID == z.PondID && existing.ZoneNumber == z.ZoneNumber {
			return repositories.ErrZoneNumberConflict
		}
	}
	z.ID = r.db.id()
	z.TournamentID = pond.TournamentID
	stored := *z
	r.db.zones[z.ID] = &stored
	return nil
}

func (r fakeZoneRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Zone, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	z, ok := r.db.zones[id]
	if !ok {
		return nil, repositories.ErrZoneNotFound
	}
	copied := *z
	return &copied, nil
}

func (r fakeZoneRepo) ListByPond(_ context.Context, pondID int) ([]models.Zone, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []models.Zone
	for _, z := range r.db.zones {
		if z.PondID == pondID {
			result = append(result, *z)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ZoneNumber < result[j].ZoneNumber })
	return result, nil
}

func (r fakeZoneRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Zone, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []models.Zone
	for _, z := range r.db.zones {
		if z.TournamentID == tournamentID {
			result = append(result, *z)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r fakeZoneRepo) Update(_ context.Context, z *models.Zone) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.zones[z.ID]; !ok {
		return repositories.ErrZoneNotFound
	}
	stored := *z
	r.db.zones[z.ID] = &stored
	return nil
}

func (r fakeZoneRepo) Delete(_ context.Context, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.zones[id]; !ok {
		return repositories.ErrZoneNotFound
	}
	delete(r.db.zones, id)
	return nil
}

// --- areas ---

type fakeAreaRepo struct{ db *memDB }

func (r fakeAreaRepo) Create(_ context.Context, a *models.Area) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	zone, ok := r.db.zones[a.ZoneID]
	if !ok {
		return repositories.ErrAreaZoneInvalid
	}
	for _, existing := range r.db.areas {
		if existing.ZoneID == a.ZoneID && existing.AreaNumber == a.AreaNumber {
			return repositories.ErrAreaNumberConflict
		}
	}
	a.ID = r.db.id()
	a.TournamentID = zone.TournamentID
	stored := *a
	r.db.areas[a.ID] = &stored
	return nil
}

func (r fakeAreaRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Area, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.areas[id]
	if !ok {
		return nil, repositories.ErrAreaNotFound
	}
	copied := *a
	return &copied, nil
}

func (r fakeAreaRepo) ListByZone(_ context.Context, zoneID int) ([]models.Area, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []models.Area
	for _, a := range r.db.areas {
		if a.ZoneID == zoneID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AreaNumber < result[j].AreaNumber })
	return result, nil
}

func (r fakeAreaRepo) Update(_ context.Context, a *models.Area) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.areas[a.ID]; !ok {
		return repositories.ErrAreaNotFound
	}
	stored := *a
	r.db.areas[a.ID] = &stored
	return nil
}

func (r fakeAreaRepo) Delete(_ context.Context, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.areas[id]; !ok {
		return repositories.ErrAreaNotFound
	}
	delete(r.db.areas, id)
	for regID, ids := range r.db.selections {
		kept := ids[:0]
		for _, areaID := range ids {
			if areaID != id {
				kept = append(kept, areaID)
			}
		}
		r.db.selections[regID] = kept
	}
	return nil
}

// availabilityLocked считает активных держателей места; r.db.mu должен быть захвачен.
func (r fakeAreaRepo) availabilityLocked(a *models.Area) models.AreaAvailability {
	holders := 0
	for regID, ids := range r.db.selections {
		reg, ok := r.db.registrations[regID]
		if !ok || !reg.Status.Active() {
			continue
		}
		for _, id := range ids {
			if id == a.ID {
				holders++
			}
		}
	}
	pondID := 0
	if zone, ok := r.db.zones[a.ZoneID]; ok {
		pondID = zone.PondID
	}
	return models.AreaAvailability{
		AreaID:        a.ID,
		ZoneID:        a.ZoneID,
		PondID:        pondID,
		TournamentID:  a.TournamentID,
		AreaNumber:    a.AreaNumber,
		PriceCents:    a.PriceCents,
		IsAvailable:   a.IsAvailable,
		ActiveHolders: holders,
	}
}

func (r fakeAreaRepo) GetAvailability(_ context.Context, _ repositories.SQLExecutor, areaIDs []int) ([]models.AreaAvailability, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []models.AreaAvailability
	for _, id := range areaIDs {
		if a, ok := r.db.areas[id]; ok {
			result = append(result, r.availabilityLocked(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AreaID < result[j].AreaID })
	return result, nil
}

func (r fakeAreaRepo) ListAvailabilityByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.AreaAvailability, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []models.AreaAvailability
	for _, a := range r.db.areas {
		if a.TournamentID == tournamentID {
			result = append(result, r.availabilityLocked(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AreaID < result[j].AreaID })
	return result, nil
}

func (r fakeAreaRepo) LockForAllocation(_ context.Context, _ repositories.SQLExecutor, areaIDs []int) ([]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var locked []int
	for _, id := range areaIDs {
		if _, ok := r.db.areas[id]; ok {
			locked = append(locked, id)
		}
	}
	sort.Ints(locked)
	return locked, nil
}

// --- registrations ---

type fakeRegistrationRepo struct{ db *memDB }

// checkUniqueLocked повторяет частичные уникальные индексы таблицы registrations.
func (r fakeRegistrationRepo) checkUniqueLocked(reg *models.Registration) error {
	for _, existing := range r.db.registrations {
		if existing.ID == reg.ID || existing.UserID != reg.UserID || existing.TournamentID != reg.TournamentID {
			continue
		}
		if reg.Status.Active() && existing.Status.Active() {
			return repositories.ErrRegistrationActiveExists
		}
		if reg.Status == models.RegistrationDraft && existing.Status == models.RegistrationDraft {
			return repositories.ErrRegistrationDraftExists
		}
	}
	return nil
}

func (r fakeRegistrationRepo) Create(_ context.Context, _ repositories.SQLExecutor, reg *models.Registration) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tournaments[reg.TournamentID]; !ok {
		return repositories.ErrRegistrationTournamentInvalid
	}
	if err := r.checkUniqueLocked(reg); err != nil {
		return err
	}
	reg.ID = r.db.id()
	reg.CreatedAt = time.Now()
	reg.UpdatedAt = reg.CreatedAt
	stored := *reg
	stored.AreaIDs = nil
	r.db.registrations[reg.ID] = &stored
	return nil
}

// Update и UpdateStatus повторяют условие WHERE status = $expected настоящего репозитория.
func (r fakeRegistrationRepo) Update(_ context.Context, _ repositories.SQLExecutor, reg *models.Registration, expected models.RegistrationStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	current, ok := r.db.registrations[reg.ID]
	if !ok || current.Status != expected {
		return repositories.ErrRegistrationStatusChanged
	}
	if err := r.checkUniqueLocked(reg); err != nil {
		return err
	}
	reg.UpdatedAt = time.Now()
	stored := *reg
	stored.AreaIDs = nil
	r.db.registrations[reg.ID] = &stored
	return nil
}

func (r fakeRegistrationRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.RegistrationStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	reg, ok := r.db.registrations[id]
	if !ok || reg.Status != from {
		return repositories.ErrRegistrationStatusChanged
	}
	candidate := *reg
	candidate.Status = to
	if err := r.checkUniqueLocked(&candidate); err != nil {
		return err
	}
	reg.Status = to
	reg.UpdatedAt = time.Now()
	return nil
}

func (r fakeRegistrationRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Registration, error) {
	r.db.mu.Lock()
	reg, ok := r.db.registrations[id]
	if !ok {
		r.db.mu.Unlock()
		return nil, repositories.ErrRegistrationNotFound
	}
	copied := *reg
	r.db.mu.Unlock()

	r.db.runConcurrentCommit()
	return &copied, nil
}

func (r fakeRegistrationRepo) find(userID, tournamentID int, match func(models.RegistrationStatus) bool) (*models.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, reg := range r.db.registrations {
		if reg.UserID == userID && reg.TournamentID == tournamentID && match(reg.Status) {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r fakeRegistrationRepo) FindActive(_ context.Context, _ repositories.SQLExecutor, userID, tournamentID int) (*models.Registration, error) {
	return r.find(userID, tournamentID, models.RegistrationStatus.Active)
}

func (r fakeRegistrationRepo) FindDraft(_ context.Context, _ repositories.SQLExecutor, userID, tournamentID int) (*models.Registration, error) {
	reg, err := r.find(userID, tournamentID, func(s models.RegistrationStatus) bool { return s == models.RegistrationDraft })
	if err == nil {
		r.db.runConcurrentCommit()
	}
	return reg, err
}

func (r fakeRegistrationRepo) list(match func(*models.Registration) bool) []*models.Registration {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []*models.Registration
	for _, reg := range r.db.registrations {
		if match(reg) {
			copied := *reg
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (r fakeRegistrationRepo) ListByTournament(_ context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.Registration, error) {
	return r.list(func(reg *models.Registration) bool {
		if reg.TournamentID != tournamentID || reg.Status == models.RegistrationDraft {
			return false
		}
		return status == nil || reg.Status == *status
	}), nil
}

func (r fakeRegistrationRepo) ListByUser(_ context.Context, userID int) ([]*models.Registration, error) {
	return r.list(func(reg *models.Registration) bool { return reg.UserID == userID }), nil
}

func (r fakeRegistrationRepo) ReplaceAreaSelections(_ context.Context, _ repositories.SQLExecutor, registrationID int, areaIDs []int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range areaIDs {
		if _, ok := r.db.areas[id]; !ok {
			return repositories.ErrRegistrationAreaInvalid
		}
	}
	r.db.selections[registrationID] = append([]int(nil), areaIDs...)
	return nil
}

func (r fakeRegistrationRepo) ListAreaIDs(_ context.Context, _ repositories.SQLExecutor, registrationIDs []int) (map[int][]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	result := make(map[int][]int, len(registrationIDs))
	for _, id := range registrationIDs {
		if ids := r.db.selections[id]; len(ids) > 0 {
			result[id] = append([]int(nil), ids...)
		}
	}
	return result, nil
}

func (r fakeRegistrationRepo) DeleteStaleDrafts(_ context.Context, updatedBefore time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, reg := range r.db.registrations {
		if reg.Status == models.RegistrationDraft && reg.UpdatedAt.Before(updatedBefore) {
			delete(r.db.registrations, id)
			delete(r.db.selections, id)
			n++
		}
	}
	return n, nil
}

// --- catches ---

type fakeCatchRepo struct{ db *memDB }

func (r fakeCatchRepo) Create(_ context.Context, c *models.Catch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.registrations[c.RegistrationID]; !ok {
		return repositories.ErrCatchRegistrationInvalid
	}
	c.ID = r.db.id()
	c.CreatedAt = time.Now()
	stored := *c
	r.db.catches[c.ID] = &stored
	return nil
}

func (r fakeCatchRepo) GetByID(_ context.Context, id int) (*models.Catch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.catches[id]
	if !ok {
		return nil, repositories.ErrCatchNotFound
	}
	copied := *c
	return &copied, nil
}

func (r fakeCatchRepo) UpdateApproval(_ context.Context, id int, status models.ApprovalStatus, reviewedAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.catches[id]
	if !ok {
		return repositories.ErrCatchNotFound
	}
	c.ApprovalStatus = status
	c.ReviewedAt = &reviewedAt
	return nil
}

func (r fakeCatchRepo) List(_ context.Context, filter repositories.CatchFilter) ([]*models.Catch, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []*models.Catch
	for _, c := range r.db.catches {
		if filter.TournamentID != nil && c.TournamentID != *filter.TournamentID {
			continue
		}
		if filter.UserID != nil && c.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && c.ApprovalStatus != *filter.Status {
			continue
		}
		copied := *c
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// fakeLeaderboardRepo строит строки таблицы из подтверждённых регистраций и уловов memDB.
type fakeLeaderboardRepo struct{ db *memDB }

func (r fakeLeaderboardRepo) ListRows(_ context.Context, tournamentID int) ([]models.LeaderboardRow, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var rows []models.LeaderboardRow
	regIDs := make([]int, 0)
	for id, reg := range r.db.registrations {
		if reg.TournamentID == tournamentID && reg.Status == models.RegistrationConfirmed {
			regIDs = append(regIDs, id)
		}
	}
	sort.Ints(regIDs)
	for _, regID := range regIDs {
		reg := r.db.registrations[regID]
		name := ""
		if u, ok := r.db.users[reg.UserID]; ok {
			name = u.Name
		}
		hasCatch := false
		for _, c := range r.db.catches {
			if c.RegistrationID != regID {
				continue
			}
			catchID := c.ID
			rows = append(rows, models.LeaderboardRow{
				UserID:         reg.UserID,
				UserName:       name,
				CatchID:        &catchID,
				WeightKg:       c.WeightKg,
				ApprovalStatus: c.ApprovalStatus,
			})
			hasCatch = true
		}
		if !hasCatch {
			rows = append(rows, models.LeaderboardRow{UserID: reg.UserID, UserName: name})
		}
	}
	return rows, nil
}

// --- uploads, events, broadcasts ---

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	fail    error
}

var _ storage.FileUploader = (*fakeUploader)(nil)

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(_ context.Context, key string, _ string, reader io.Reader) (*storage.UploadResult, error) {
	if u.fail != nil {
		return nil, u.fail
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://files.example.test/" + key
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	rooms []string
}

func (b *recordingBroadcaster) BroadcastToRoom(roomID string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, roomID)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rooms)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]string, 0, len(p.events))
	for _, e := range p.events {
		result = append(result, e.Type)
	}
	return result
}
