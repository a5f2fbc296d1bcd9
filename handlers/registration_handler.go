package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/fishing-tournament/models"
	"github.com/Dosada05/fishing-tournament/services"
)

const receiptField = "payment_receipt"

type RegistrationHandler struct {
	registrationService services.RegistrationService
	maxUploadBytes      int64
}

func NewRegistrationHandler(rs services.RegistrationService, maxUploadBytes int64) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: rs,
		maxUploadBytes:      maxUploadBytes,
	}
}

// Submit обрабатывает POST /registrations (multipart).
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	input, cleanup, err := h.parseRegistrationInput(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer cleanup()

	summary, err := h.registrationService.Submit(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SaveDraft обрабатывает POST /registrations/draft (multipart или JSON).
func (h *RegistrationHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	input, cleanup, err := h.parseRegistrationInput(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer cleanup()

	summary, err := h.registrationService.SaveDraft(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := optionalIntQuery(r, "tournament_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if tournamentID == nil {
		badRequestResponse(w, r, errors.New("query parameter tournament_id is required"))
		return
	}

	reg, err := h.registrationService.GetDraft(r.Context(), userID, *tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	regs, err := h.registrationService.ListMine(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if regs == nil {
		regs = []*models.Registration{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByTournament обрабатывает GET /tournaments/{tournamentID}/registrations?status=
func (h *RegistrationHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	organizerID, tournamentID, ok := parentAndUser(w, r, "tournamentID")
	if !ok {
		return
	}

	var status *models.RegistrationStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s := models.RegistrationStatus(raw)
		status = &s
	}

	regs, err := h.registrationService.ListByTournament(r.Context(), organizerID, tournamentID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if regs == nil {
		regs = []*models.Registration{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateStatus обрабатывает PATCH /registrations/{registrationID}/status
func (h *RegistrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	organizerID, registrationID, ok := parentAndUser(w, r, "registrationID")
	if !ok {
		return
	}

	var input struct {
		Status models.RegistrationStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.UpdateStatus(r.Context(), organizerID, registrationID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type registrationBody struct {
	TournamentID  int    `json:"tournament_id"`
	PondID        *int   `json:"pond_id"`
	ZoneID        *int   `json:"zone_id"`
	AreaIDs       []int  `json:"area_ids"`
	BankAccountNo string `json:"bank_account_no"`
}

// parseRegistrationInput разбирает multipart-форму или JSON-тело заявки.
// cleanup освобождает временные файлы multipart.
func (h *RegistrationHandler) parseRegistrationInput(w http.ResponseWriter, r *http.Request) (services.RegistrationInput, func(), error) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body registrationBody
		if err := readJSON(w, r, &body); err != nil {
			return services.RegistrationInput{}, noop, err
		}
		return services.RegistrationInput{
			TournamentID:  body.TournamentID,
			PondID:        body.PondID,
			ZoneID:        body.ZoneID,
			AreaIDs:       body.AreaIDs,
			BankAccountNo: body.BankAccountNo,
		}, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return services.RegistrationInput{}, noop, fmt.Errorf("invalid multipart form: %w", err)
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	input, err := registrationInputFromForm(r.MultipartForm)
	if err != nil {
		cleanup()
		return services.RegistrationInput{}, noop, err
	}

	if files := r.MultipartForm.File[receiptField]; len(files) > 0 {
		upload, err := openUpload(files[0])
		if err != nil {
			cleanup()
			return services.RegistrationInput{}, noop, err
		}
		input.Receipt = upload
		prev := cleanup
		cleanup = func() {
			if c, ok := upload.Reader.(multipart.File); ok {
				_ = c.Close()
			}
			prev()
		}
	}
	return input, cleanup, nil
}

func registrationInputFromForm(form *multipart.Form) (services.RegistrationInput, error) {
	var input services.RegistrationInput
	value := func(name string) string {
		if v := form.Value[name]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	tournamentID, err := strconv.Atoi(value("tournament_id"))
	if err != nil {
		return input, errors.New("tournament_id must be an integer")
	}
	input.TournamentID = tournamentID
	input.BankAccountNo = value("bank_account_no")

	if input.PondID, err = optionalFormInt(value("pond_id"), "pond_id"); err != nil {
		return input, err
	}
	if input.ZoneID, err = optionalFormInt(value("zone_id"), "zone_id"); err != nil {
		return input, err
	}
	if raw := value("area_ids"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.AreaIDs); err != nil {
			return input, errors.New("area_ids must be a JSON array of integers")
		}
	}
	return input, nil
}

func optionalFormInt(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &v, nil
}

func openUpload(header *multipart.FileHeader) (*services.UploadFile, error) {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		return nil, errors.New("content type required")
	}
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return &services.UploadFile{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
	}, nil
}
