package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

const (
	linkSlugMaxLen    = 40
	linkRandomBytes   = 8
	MinPasswordLength = 8
)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// NewLinkToken строит публичный токен ссылки турнира: читаемый slug названия
// и случайный суффикс, который делает ссылку неугадываемой.
func NewLinkToken(name string) (string, error) {
	buf := make([]byte, linkRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate link token: %w", err)
	}
	suffix := hex.EncodeToString(buf)

	prefix := slug.Make(name)
	if len(prefix) > linkSlugMaxLen {
		prefix = strings.TrimRight(prefix[:linkSlugMaxLen], "-")
	}
	if prefix == "" {
		return suffix, nil
	}
	return prefix + "-" + suffix, nil
}

// GenerateJWT подписывает HS256-токен доступа с id и ролью пользователя.
func GenerateJWT(secret []byte, userID int, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
