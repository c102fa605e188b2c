package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const issuer = "vaultdrive"

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("invalid token")

var secretBytes []byte

type authConfig struct {
	Secret string `mapstructure:"Secret"`
}

// Init загружает секрет подписи из конфигурационного файла.
// Вызывается один раз при старте, до обработки запросов.
func Init(path string) error {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("cannot read auth config from %s: %w", path, err)
	}

	var cfg authConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("cannot unmarshal auth config: %w", err)
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return errors.New("auth secret is not configured")
	}

	secretBytes = []byte(cfg.Secret)
	return nil
}

// InitWithSecret задаёт секрет напрямую (тесты).
func InitWithSecret(secret string) {
	secretBytes = []byte(secret)
}

// Claims represents JWT claims used across the service.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs a JWT for the given user using HS256.
func GenerateToken(userID int64, ttl time.Duration) (string, error) {
	if userID <= 0 {
		return "", errors.New("userID is required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be greater than zero")
	}
	if len(secretBytes) == 0 {
		return "", errors.New("auth secret is not configured")
	}

	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secretBytes)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseAndValidate verifies the token signature and required claims.
func ParseAndValidate(token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrInvalidToken
	}
	if len(secretBytes) == 0 {
		return 0, errors.New("auth secret is not configured")
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secretBytes, nil
	})
	if err != nil {
		return 0, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	if claims.Issuer != issuer {
		return 0, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || time.Now().UTC().After(claims.ExpiresAt.Time) {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}

	return userID, nil
}

// VerifyRequest извлекает и проверяет bearer-токен запроса,
// возвращая идентификатор пользователя.
func VerifyRequest(r *http.Request) (int64, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return 0, ErrInvalidToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0, ErrInvalidToken
	}

	return ParseAndValidate(parts[1])
}
