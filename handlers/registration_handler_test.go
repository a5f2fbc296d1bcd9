package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"strings"
	"testing"

	"github.com/Dosada05/fishing-tournament/middleware"
	"github.com/Dosada05/fishing-tournament/models"
	"github.com/Dosada05/fishing-tournament/services"
)

type stubRegistrationService struct {
	services.RegistrationService

	gotUserID  int
	gotInput   services.RegistrationInput
	gotReceipt []byte
	err        error
}

func (s *stubRegistrationService) Submit(_ context.Context, userID int, input services.RegistrationInput) (*models.RegistrationSummary, error) {
	s.gotUserID = userID
	s.gotInput = input
	if input.Receipt != nil {
		s.gotReceipt, _ = io.ReadAll(input.Receipt.Reader)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.RegistrationSummary{
		ID:                11,
		TournamentID:      input.TournamentID,
		TotalPaymentCents: 8000,
		Status:            models.RegistrationPending,
		AreaCount:         len(input.AreaIDs),
	}, nil
}

func multipartRegistration(t *testing.T, fields map[string]string, receipt []byte, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if receipt != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="payment_receipt"; filename="receipt.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(receipt); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func asUser(req *http.Request, userID int) *http.Request {
	return req.WithContext(middleware.WithClaims(req.Context(), userID, models.RoleUser))
}

func TestSubmitRegistrationMultipart(t *testing.T) {
	stub := &stubRegistrationService{}
	h := NewRegistrationHandler(stub, 1<<20)

	body, contentType := multipartRegistration(t, map[string]string{
		"tournament_id":   "5",
		"area_ids":        "[3, 4]",
		"bank_account_no": "UA213223130000026007233566001",
	}, []byte("\x89PNG"), "image/png")

	req := asUser(httptest.NewRequest(http.MethodPost, "/registrations", body), 7)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body = %s", rec.Code, rec.Body.String())
	}
	if stub.gotUserID != 7 || stub.gotInput.TournamentID != 5 {
		t.Errorf("service called with user %d tournament %d", stub.gotUserID, stub.gotInput.TournamentID)
	}
	if !reflect.DeepEqual(stub.gotInput.AreaIDs, []int{3, 4}) {
		t.Errorf("AreaIDs = %v, want [3 4]", stub.gotInput.AreaIDs)
	}
	if stub.gotInput.Receipt == nil || stub.gotInput.Receipt.ContentType != "image/png" {
		t.Fatalf("receipt = %+v, want image/png upload", stub.gotInput.Receipt)
	}
	if string(stub.gotReceipt) != "\x89PNG" {
		t.Errorf("receipt bytes = %q", stub.gotReceipt)
	}

	var resp struct {
		Registration models.RegistrationSummary `json:"registration"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Registration.AreaCount != 2 || resp.Registration.Status != models.RegistrationPending {
		t.Errorf("response = %+v", resp.Registration)
	}
}

func TestSubmitRegistrationBadInput(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"tournament id not a number", map[string]string{"tournament_id": "five"}},
		{"area ids not json", map[string]string{"tournament_id": "5", "area_ids": "3,4"}},
		{"pond id not a number", map[string]string{"tournament_id": "5", "pond_id": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubRegistrationService{}
			body, contentType := multipartRegistration(t, tt.fields, nil, "")
			req := asUser(httptest.NewRequest(http.MethodPost, "/registrations", body), 7)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			NewRegistrationHandler(stub, 1<<20).Submit(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if stub.gotUserID != 0 {
				t.Error("service must not be called on invalid input")
			}
		})
	}
}

func TestSubmitRegistrationJSON(t *testing.T) {
	stub := &stubRegistrationService{err: services.ErrAreasUnavailable}
	h := NewRegistrationHandler(stub, 1<<20)

	req := asUser(httptest.NewRequest(http.MethodPost, "/registrations",
		strings.NewReader(`{"tournament_id": 5, "area_ids": [9], "bank_account_no": "UA1"}`)), 3)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unavailable areas", rec.Code)
	}
	if stub.gotInput.BankAccountNo != "UA1" || !reflect.DeepEqual(stub.gotInput.AreaIDs, []int{9}) {
		t.Errorf("input = %+v", stub.gotInput)
	}

	req = asUser(httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader(`{"tournament": 5}`)), 3)
	rec = httptest.NewRecorder()
	h.Submit(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rec.Code)
	}
}

func TestSubmitRegistrationRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader(`{}`))
	NewRegistrationHandler(&stubRegistrationService{}, 1<<20).Submit(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGetDraftRequiresTournamentID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := asUser(httptest.NewRequest(http.MethodGet, "/registrations/draft", nil), 3)
	NewRegistrationHandler(&stubRegistrationService{}, 1<<20).GetDraft(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
