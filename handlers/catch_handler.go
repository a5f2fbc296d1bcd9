package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/fishing-tournament/models"
	"github.com/Dosada05/fishing-tournament/services"
)

const photoField = "photo"

type CatchHandler struct {
	catchService   services.CatchService
	maxUploadBytes int64
}

func NewCatchHandler(cs services.CatchService, maxUploadBytes int64) *CatchHandler {
	return &CatchHandler{catchService: cs, maxUploadBytes: maxUploadBytes}
}

// Create обрабатывает POST /catches (multipart: tournament_id, weight_kg, species, photo).
func (h *CatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		badRequestResponse(w, r, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	tournamentID, err := strconv.Atoi(strings.TrimSpace(r.FormValue("tournament_id")))
	if err != nil {
		badRequestResponse(w, r, errors.New("tournament_id must be an integer"))
		return
	}
	weight, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("weight_kg")), 64)
	if err != nil {
		badRequestResponse(w, r, errors.New("weight_kg must be a number"))
		return
	}

	input := services.CreateCatchInput{TournamentID: tournamentID, WeightKg: weight}
	if species := r.FormValue("species"); species != "" {
		input.Species = &species
	}
	if files := r.MultipartForm.File[photoField]; len(files) > 0 {
		upload, err := openUpload(files[0])
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		if closer, ok := upload.Reader.(interface{ Close() error }); ok {
			defer closer.Close()
		}
		input.Photo = upload
	}

	catch, err := h.catchService.Create(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"catch": catch}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *CatchHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := optionalIntQuery(r, "tournament_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	catches, err := h.catchService.ListMine(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if catches == nil {
		catches = []*models.Catch{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"catches": catches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByTournament обрабатывает GET /tournaments/{tournamentID}/catches?status=
func (h *CatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	organizerID, tournamentID, ok := parentAndUser(w, r, "tournamentID")
	if !ok {
		return
	}

	var status *models.ApprovalStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s := models.ApprovalStatus(raw)
		status = &s
	}

	catches, err := h.catchService.ListByTournament(r.Context(), organizerID, tournamentID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if catches == nil {
		catches = []*models.Catch{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"catches": catches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Review обрабатывает PATCH /catches/{catchID}/status
func (h *CatchHandler) Review(w http.ResponseWriter, r *http.Request) {
	organizerID, catchID, ok := parentAndUser(w, r, "catchID")
	if !ok {
		return
	}

	var input struct {
		Status models.ApprovalStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	catch, err := h.catchService.Review(r.Context(), organizerID, catchID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"catch": catch}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
