package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/fishing-tournament/middleware"
	"github.com/Dosada05/fishing-tournament/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

// exposeServerErrors добавляет текст внутренней ошибки в ответ 500. Выключается в production.
var exposeServerErrors = true

// SetExposeServerErrors управляет выдачей деталей внутренних ошибок клиенту.
func SetExposeServerErrors(expose bool) {
	exposeServerErrors = expose
}

// retryAfterSeconds - значение Retry-After для временных ошибок.
const retryAfterSeconds = 1

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // ошибка программиста: передан не указатель
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}, headers http.Header) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, headers); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))

	env := jsonResponse{"error": "the server encountered a problem and could not process your request"}
	if exposeServerErrors {
		env["detail"] = err.Error()
	}
	if writeErr := writeJSON(w, http.StatusInternalServerError, env, nil); writeErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error(), nil)
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "the requested resource could not be found"
	}
	errorResponse(w, r, http.StatusNotFound, message, nil)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message, nil)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message, nil)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message, nil)
}

func unavailableResponse(w http.ResponseWriter, r *http.Request, message string) {
	headers := http.Header{"Retry-After": []string{strconv.Itoa(retryAfterSeconds)}}
	errorResponse(w, r, http.StatusServiceUnavailable, message, headers)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrPondNotFound),
		errors.Is(err, services.ErrZoneNotFound),
		errors.Is(err, services.ErrAreaNotFound),
		errors.Is(err, services.ErrRegistrationNotFound),
		errors.Is(err, services.ErrCatchNotFound):
		notFoundResponse(w, r, err.Error())

	// Конфликты процесса регистрации отдаются как 400
	case errors.Is(err, services.ErrRegistrationConflict),
		errors.Is(err, services.ErrAreasUnavailable),
		errors.Is(err, services.ErrRegistrationNotOpen),
		errors.Is(err, services.ErrTournamentClosed),
		errors.Is(err, services.ErrTournamentNotActive),
		errors.Is(err, services.ErrCatchNotAllowed):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrUserEmailConflict),
		errors.Is(err, services.ErrZoneNumberConflict),
		errors.Is(err, services.ErrAreaNumberConflict),
		errors.Is(err, services.ErrTournamentNotDeletable),
		errors.Is(err, services.ErrLayoutLocked),
		errors.Is(err, services.ErrAreaInUse):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidStructureType),
		errors.Is(err, services.ErrStructureTypeImmutable),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrTournamentInvalidDates),
		errors.Is(err, services.ErrTournamentInvalidStatus),
		errors.Is(err, services.ErrInvalidStatusTransition),
		errors.Is(err, services.ErrInvalidRegistrationStatus),
		errors.Is(err, services.ErrInvalidApprovalStatus),
		errors.Is(err, services.ErrInvalidAreaIDs),
		errors.Is(err, services.ErrNoAreasSelected),
		errors.Is(err, services.ErrBankAccountRequired),
		errors.Is(err, services.ErrInvalidPrice),
		errors.Is(err, services.ErrInvalidNumber),
		errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrCatchWeightInvalid),
		errors.Is(err, services.ErrUnsupportedFileType):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrInvalidCredentials):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation):
		forbiddenResponse(w, r, err.Error())

	case errors.Is(err, services.ErrTransient):
		unavailableResponse(w, r, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}

func getIDFromURL(r *http.Request, paramName string) (int, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s in URL path", paramName)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format", paramName)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid %s value", paramName)
	}
	return id, nil
}

// optionalIntQuery читает необязательный положительный целый query-параметр.
func optionalIntQuery(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return nil, fmt.Errorf("query parameter %s must be a positive integer", name)
	}
	return &v, nil
}

// currentUser достаёт id пользователя из токена; при ошибке сам пишет 401.
func currentUser(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return 0, false
	}
	return userID, true
}
