package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/fishing-tournament/services"
	"github.com/go-chi/chi/v5"
)

type stubTournamentService struct {
	services.TournamentService

	gotLink    string
	gotAreaIDs []int
	result     map[int]bool
	err        error
}

func (s *stubTournamentService) CheckAvailability(_ context.Context, link string, areaIDs []int) (map[int]bool, error) {
	s.gotLink = link
	s.gotAreaIDs = areaIDs
	if s.err != nil {
		return nil, s.err
	}
	result := make(map[int]bool, len(s.result))
	for k, v := range s.result {
		result[k] = v
	}
	return result, nil
}

func availabilityRouter(h *TournamentHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/tournaments/register/{link}/availability", h.CheckAvailability)
	return r
}

func TestCheckAvailabilityResponse(t *testing.T) {
	stub := &stubTournamentService{result: map[int]bool{3: true, 4: false}}
	router := availabilityRouter(NewTournamentHandler(stub))

	req := httptest.NewRequest(http.MethodPost, "/tournaments/register/spring-cup-1a2b/availability",
		strings.NewReader(`{"area_ids": [4, 3, 4]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	if stub.gotLink != "spring-cup-1a2b" {
		t.Errorf("link = %q", stub.gotLink)
	}

	var resp struct {
		Areas []struct {
			AreaID      int  `json:"area_id"`
			IsAvailable bool `json:"is_available"`
		} `json:"areas"`
		AllAvailable bool `json:"all_available"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Areas) != 2 {
		t.Fatalf("areas = %+v, want one entry per distinct id", resp.Areas)
	}
	if resp.Areas[0].AreaID != 4 || resp.Areas[0].IsAvailable || resp.Areas[1].AreaID != 3 || !resp.Areas[1].IsAvailable {
		t.Errorf("areas = %+v, want request order [4:false 3:true]", resp.Areas)
	}
	if resp.AllAvailable {
		t.Error("all_available = true, want false")
	}
}

func TestCheckAvailabilityErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"unknown link", `{"area_ids": [1]}`, services.ErrTournamentNotFound, http.StatusNotFound},
		{"foreign area", `{"area_ids": [1]}`, services.ErrAreaNotFound, http.StatusNotFound},
		{"empty selection", `{"area_ids": []}`, services.ErrNoAreasSelected, http.StatusBadRequest},
		{"malformed body", `{"area_ids": "1"}`, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := availabilityRouter(NewTournamentHandler(&stubTournamentService{err: tt.err}))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tournaments/register/x/availability", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
