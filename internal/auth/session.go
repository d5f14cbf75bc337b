package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/mmo-tiles/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession ключ сессии не прошёл проверку
var ErrInvalidSession = errors.New("недействительный ключ сессии")

// SessionClaims данные ключа сессии
type SessionClaims struct {
	AccountID uint64 `json:"account_id"`
	Account   string `json:"account"`
	IsAdmin   bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// SessionIssuer выдаёт и проверяет ключи сессии (JWT HS256).
// Ключ из ответа сервера входа предъявляется при входе персонажа в игру.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer создаёт выпускающего. Пустой секрет заменяется случайным:
// ключи тогда не переживают перезапуск сервера.
func NewSessionIssuer(secret []byte, ttl time.Duration) *SessionIssuer {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logging.Error("КРИТИЧЕСКАЯ ОШИБКА: не удалось сгенерировать JWT секрет: %v", err)
		}
		logging.Warn("⚠️ JWT секрет не задан, ключи сессий действительны до перезапуска")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue создаёт ключ сессии для учётной записи
func (s *SessionIssuer) Issue(acc *Account) (token string, expiresAt time.Time, err error) {
	now := s.now()
	expiresAt = now.Add(s.ttl)
	claims := &SessionClaims{
		AccountID: acc.ID,
		Account:   acc.Name,
		IsAdmin:   acc.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "mmo-tiles",
			Subject:   acc.Name,
			ID:        fmt.Sprintf("account_%d_%d", acc.ID, now.UnixNano()),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи JWT токена: %w", err)
	}
	return token, expiresAt, nil
}

// Validate проверяет подпись и срок ключа
func (s *SessionIssuer) Validate(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный алгоритм подписи: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
