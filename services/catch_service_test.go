package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Dosada05/fishing-tournament/events"
	"github.com/Dosada05/fishing-tournament/models"
)

// confirmedAngler регистрирует пользователя на место и подтверждает заявку.
func (f *fixture) confirmedAngler(t *testing.T, organizerID int, tour *models.Tournament, area *models.Area, name string) *models.User {
	t.Helper()
	u := f.user(t, name)
	summary, err := f.registrations.Submit(context.Background(), u.ID, submitInput(tour.ID, area.ID))
	if err != nil {
		t.Fatalf("Submit(%s) error = %v", name, err)
	}
	if _, err := f.registrations.UpdateStatus(context.Background(), organizerID, summary.ID, models.RegistrationConfirmed); err != nil {
		t.Fatalf("confirm %s: %v", name, err)
	}
	return u
}

func TestCreateCatchRequiresConfirmedRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	organizer := f.user(t, "organizer")
	pending := f.user(t, "pending")
	tour, areas := f.areaTournament(t, organizer.ID, 1000, 1000)

	if _, err := f.registrations.Submit(ctx, pending.ID, submitInput(tour.ID, areas[0].ID)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.catches.Create(ctx, pending.ID, CreateCatchInput{TournamentID: tour.ID, WeightKg: 1.2}); !errors.Is(err, ErrCatchNotAllowed) {
		t.Errorf("Create() with pending registration error = %v, want ErrCatchNotAllowed", err)
	}
	if _, err := f.catches.Create(ctx, organizer.ID, CreateCatchInput{TournamentID: tour.ID, WeightKg: 1.2}); !errors.Is(err, ErrCatchNotAllowed) {
		t.Errorf("Create() without registration error = %v, want ErrCatchNotAllowed", err)
	}

	angler := f.confirmedAngler(t, organizer.ID, tour, areas[1], "angler")
	if _, err := f.catches.Create(ctx, angler.ID, CreateCatchInput{TournamentID: tour.ID, WeightKg: 0}); !errors.Is(err, ErrCatchWeightInvalid) {
		t.Errorf("Create(0 kg) error = %v, want ErrCatchWeightInvalid", err)
	}

	catch, err := f.catches.Create(ctx, angler.ID, CreateCatchInput{
		TournamentID: tour.ID,
		WeightKg:     2.75,
		Species:      strPtr(" carp "),
		Photo:        &UploadFile{Reader: strings.NewReader("jpeg"), ContentType: "image/jpeg"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if catch.ApprovalStatus != models.CatchPending {
		t.Errorf("ApprovalStatus = %q, want pending", catch.ApprovalStatus)
	}
	if catch.Species == nil || *catch.Species != "carp" {
		t.Errorf("Species = %v, want trimmed carp", catch.Species)
	}
	if catch.PhotoKey == nil || !strings.HasPrefix(*catch.PhotoKey, "catches/") || !strings.HasSuffix(*catch.PhotoKey, ".jpg") {
		t.Errorf("PhotoKey = %v, want catches/<tournament>/<uuid>.jpg", catch.PhotoKey)
	}
	if catch.PhotoURL == nil {
		t.Error("PhotoURL not populated")
	}

	if _, err := f.catches.Create(ctx, angler.ID, CreateCatchInput{
		TournamentID: tour.ID,
		WeightKg:     1,
		Photo:        &UploadFile{Reader: strings.NewReader("%PDF"), ContentType: "application/pdf"},
	}); !errors.Is(err, ErrUnsupportedFileType) {
		t.Errorf("Create(pdf photo) error = %v, want ErrUnsupportedFileType", err)
	}

	if err := f.tournamentRepo.UpdateStatus(ctx, tour.ID, models.TournamentCompleted); err != nil {
		t.Fatal(err)
	}
	if _, err := f.catches.Create(ctx, angler.ID, CreateCatchInput{TournamentID: tour.ID, WeightKg: 1}); !errors.Is(err, ErrTournamentNotActive) {
		t.Errorf("Create() after completion error = %v, want ErrTournamentNotActive", err)
	}
}

func TestReviewCatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	organizer := f.user(t, "organizer")
	stranger := f.user(t, "stranger")
	tour, areas := f.areaTournament(t, organizer.ID, 1000)
	angler := f.confirmedAngler(t, organizer.ID, tour, areas[0], "angler")

	catch, err := f.catches.Create(ctx, angler.ID, CreateCatchInput{TournamentID: tour.ID, WeightKg: 3.1})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.catches.Review(ctx, organizer.ID, catch.ID, models.CatchPending); !errors.Is(err, ErrInvalidApprovalStatus) {
		t.Errorf("Review(pending) error = %v, want ErrInvalidApprovalStatus", err)
	}
	if _, err := f.catches.Review(ctx, stranger.ID, catch.ID, models.CatchApproved); !errors.Is(err, ErrCatchNotFound) {
		t.Errorf("Review() by stranger error = %v, want ErrCatchNotFound", err)
	}

	before := f.broadcaster.count()
	reviewed, err := f.catches.Review(ctx, organizer.ID, catch.ID, models.CatchApproved)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if reviewed.ApprovalStatus != models.CatchApproved || reviewed.ReviewedAt == nil {
		t.Errorf("reviewed = %+v, want approved with ReviewedAt", reviewed)
	}
	if f.broadcaster.count() != before+1 {
		t.Error("approving a catch did not refresh the leaderboard")
	}
	types := f.publisher.types()
	if types[len(types)-1] != events.CatchReviewed {
		t.Errorf("last event = %s, want %s", types[len(types)-1], events.CatchReviewed)
	}

	approved := models.CatchApproved
	list, err := f.catches.ListByTournament(ctx, organizer.ID, tour.ID, &approved)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByTournament(approved) = %v, %v", list, err)
	}
	mine, err := f.catches.ListMine(ctx, angler.ID, &tour.ID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListMine() = %v, %v", mine, err)
	}
}

func TestLeaderboardRanksApprovedWeight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	organizer := f.user(t, "organizer")
	tour, areas := f.areaTournament(t, organizer.ID, 1000, 1000, 1000)
	alice := f.confirmedAngler(t, organizer.ID, tour, areas[0], "alice")
	bob := f.confirmedAngler(t, organizer.ID, tour, areas[1], "bob")
	carol := f.confirmedAngler(t, organizer.ID, tour, areas[2], "carol")

	submit := func(userID int, weight float64, status models.ApprovalStatus) {
		t.Helper()
		c, err := f.catches.Create(ctx, userID, CreateCatchInput{TournamentID: tour.ID, WeightKg: weight})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if status != models.CatchPending {
			if _, err := f.catches.Review(ctx, organizer.ID, c.ID, status); err != nil {
				t.Fatalf("Review() error = %v", err)
			}
		}
	}
	submit(alice.ID, 2.5, models.CatchApproved)
	submit(alice.ID, 1.0, models.CatchApproved)
	submit(alice.ID, 3.0, models.CatchPending)
	submit(bob.ID, 4.0, models.CatchApproved)
	submit(bob.ID, 9.0, models.CatchRejected)

	board, err := f.leaderboard.GetByLink(ctx, tour.LeaderboardLink)
	if err != nil {
		t.Fatalf("GetByLink() error = %v", err)
	}
	if len(board.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(board.Entries))
	}

	want := []models.LeaderboardEntry{
		{Rank: 1, UserID: bob.ID, UserName: "bob", TotalCatches: 2, TotalWeightKg: 4.0, BiggestCatch: 4.0},
		{Rank: 2, UserID: alice.ID, UserName: "alice", TotalCatches: 3, TotalWeightKg: 3.5, BiggestCatch: 2.5},
		{Rank: 3, UserID: carol.ID, UserName: "carol"},
	}
	for i, w := range want {
		if board.Entries[i] != w {
			t.Errorf("entry %d = %+v, want %+v", i, board.Entries[i], w)
		}
	}

	if _, err := f.leaderboard.GetByLink(ctx, tour.RegistrationLink); !errors.Is(err, ErrTournamentNotFound) {
		t.Errorf("GetByLink(registration link) error = %v, want ErrTournamentNotFound", err)
	}
}

func TestAggregateLeaderboardTieBreaks(t *testing.T) {
	id := func(v int) *int { return &v }
	rows := []models.LeaderboardRow{
		{UserID: 3, UserName: "c", CatchID: id(1), WeightKg: 2.0, ApprovalStatus: models.CatchApproved},
		{UserID: 3, UserName: "c", CatchID: id(2), WeightKg: 1.0, ApprovalStatus: models.CatchApproved},
		{UserID: 2, UserName: "b", CatchID: id(3), WeightKg: 3.0, ApprovalStatus: models.CatchApproved},
		{UserID: 1, UserName: "a", CatchID: id(4), WeightKg: 3.0, ApprovalStatus: models.CatchApproved},
		{UserID: 4, UserName: "d"},
	}

	entries := aggregateLeaderboard(rows)
	gotOrder := make([]int, 0, len(entries))
	for _, e := range entries {
		gotOrder = append(gotOrder, e.UserID)
	}
	// 1 и 2: одинаковый вес и крупнейший улов, решает user_id; 3 набрал тот же вес, но улов меньше.
	wantOrder := []int{1, 2, 3, 4}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
		}
	}
	if entries[3].TotalCatches != 0 || entries[3].Rank != 4 {
		t.Errorf("angler without catches = %+v", entries[3])
	}
}
