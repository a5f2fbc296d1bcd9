package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Dosada05/fishing-tournament/models"
	"github.com/Dosada05/fishing-tournament/repositories"
	"github.com/Dosada05/fishing-tournament/storage"
	"github.com/google/uuid"
)

// UploadFile - файл из multipart-запроса.
type UploadFile struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// uniqueIDs убирает дубликаты, сохраняя порядок, и отклоняет неположительные id.
func uniqueIDs(ids []int) ([]int, error) {
	seen := make(map[int]struct{}, len(ids))
	result := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, ErrInvalidAreaIDs
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result, nil
}

func isValidTournamentTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.TournamentDraft:     {models.TournamentActive, models.TournamentCancelled},
		models.TournamentActive:    {models.TournamentCompleted, models.TournamentCancelled},
		models.TournamentCompleted: {},
		models.TournamentCancelled: {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// loadOwnedTournament загружает турнир и проверяет, что им владеет организатор.
func loadOwnedTournament(ctx context.Context, repo repositories.TournamentRepository, exec repositories.SQLExecutor, organizerID, tournamentID int) (*models.Tournament, error) {
	tournament, err := repo.GetByID(ctx, exec, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}
	if tournament.OrganizerID != organizerID {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

// uploadFile сохраняет файл в хранилище под ключом prefix/<uuid><ext> и возвращает ключ.
func uploadFile(ctx context.Context, uploader storage.FileUploader, prefix string, file *UploadFile, allowPDF bool) (string, error) {
	ext, err := GetExtensionFromContentType(file.ContentType, allowPDF)
	if err != nil {
		return "", err
	}
	key := strings.TrimSuffix(prefix, "/") + "/" + uuid.NewString() + ext
	if _, err := uploader.Upload(ctx, key, file.ContentType, file.Reader); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return key, nil
}

func publicURL(uploader storage.FileUploader, key *string) *string {
	if key == nil || *key == "" || uploader == nil {
		return nil
	}
	url := uploader.GetPublicURL(*key)
	if url == "" {
		return nil
	}
	return &url
}

func populateRegistrationDetails(reg *models.Registration, uploader storage.FileUploader) {
	if reg == nil {
		return
	}
	reg.PaymentReceiptURL = publicURL(uploader, reg.PaymentReceipt)
	if reg.AreaIDs == nil {
		reg.AreaIDs = []int{}
	}
}

func populateCatchDetails(c *models.Catch, uploader storage.FileUploader) {
	if c == nil {
		return
	}
	c.PhotoURL = publicURL(uploader, c.PhotoKey)
}

// GetExtensionFromContentType определяет расширение файла по Content-Type.
// PDF допускается только для квитанций об оплате.
func GetExtensionFromContentType(contentType string, allowPDF bool) (string, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "image/heic":
		return ".heic", nil
	case "application/pdf":
		if allowPDF {
			return ".pdf", nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, contentType)
}
