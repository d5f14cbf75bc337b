package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword пароль учётной записи не может быть пустым
var ErrEmptyPassword = errors.New("пустой пароль")

// HashPassword хеширует пароль учётной записи для хранения в PasswordHash.
// bcrypt учитывает только первые 72 байта, более длинные пароли отвергаются.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("хеширование пароля: %w", err)
	}
	return string(hash), nil
}

// CheckPassword сверяет пароль, введённый при входе, с PasswordHash учётной записи
func CheckPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
