package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации
	ErrValidationFailed          = errors.New("validation failed")
	ErrPasswordTooShort          = errors.New("password is too short")
	ErrInvalidRole               = errors.New("role must be 'user' or 'organizer'")
	ErrInvalidStructureType      = errors.New("structure_type must be one of pond_only, pond_zone, pond_zone_area")
	ErrStructureTypeImmutable    = errors.New("structure_type cannot be changed after creation")
	ErrTournamentNameRequired    = errors.New("tournament name is required")
	ErrTournamentInvalidDates    = errors.New("tournament start time must be before end time")
	ErrTournamentInvalidStatus   = errors.New("invalid tournament status provided")
	ErrInvalidStatusTransition   = errors.New("invalid status transition")
	ErrInvalidRegistrationStatus = errors.New("status must be one of pending, confirmed, rejected, cancelled")
	ErrInvalidApprovalStatus     = errors.New("status must be one of approved, rejected")
	ErrInvalidAreaIDs            = errors.New("area_ids must contain positive integers")
	ErrNoAreasSelected           = errors.New("at least one area must be selected")
	ErrBankAccountRequired       = errors.New("bank_account_no is required")
	ErrInvalidPrice              = errors.New("price must not be negative")
	ErrInvalidNumber             = errors.New("number must be positive")
	ErrNameRequired              = errors.New("name is required")
	ErrCatchWeightInvalid        = errors.New("catch weight must be positive")
	ErrUnsupportedFileType       = errors.New("unsupported file type")

	// Конфликты процесса регистрации (возвращаются клиенту как 400)
	ErrRegistrationConflict = errors.New("user already has an active registration for this tournament")
	ErrAreasUnavailable     = errors.New("some selected areas are no longer available")
	ErrRegistrationNotOpen  = errors.New("tournament is not accepting registrations")
	ErrTournamentClosed     = errors.New("tournament is completed or cancelled")
	ErrTournamentNotActive  = errors.New("tournament is not active")
	ErrCatchNotAllowed      = errors.New("catches can only be submitted with a confirmed registration")

	// Конфликты ресурсов (409)
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrZoneNumberConflict     = errors.New("zone number already exists in this pond")
	ErrAreaNumberConflict     = errors.New("area number already exists in this zone")
	ErrTournamentNotDeletable = errors.New("only draft tournaments can be deleted")
	ErrLayoutLocked           = errors.New("ponds and zones can only be removed while the tournament is a draft")
	ErrAreaInUse              = errors.New("area is held by an active registration")

	// Аутентификация и авторизация
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Временная ошибка: операцию можно повторить
	ErrTransient = errors.New("the operation timed out, please retry")

	ErrUserNotFound         = errors.New("user not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrPondNotFound         = errors.New("pond not found")
	ErrZoneNotFound         = errors.New("zone not found")
	ErrAreaNotFound         = errors.New("area not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrCatchNotFound        = errors.New("catch not found")
)
