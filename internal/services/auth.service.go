package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"twinconsole/internal/apperr"
	"twinconsole/internal/logger"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer     = "twinconsole"
	secretKeyName   = ".twinconsole-secret-key"
	minSecretLength = 32
)

// AuthService issues and validates operator tokens
type AuthService struct {
	secretKey   string
	tokenExpiry time.Duration
}

// OperatorClaims identifies who issued playback commands
type OperatorClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// NewAuthService resolves the signing secret: the explicit secret, then
// secretFile, then a key persisted in the user's home directory (generated
// on first use).
func NewAuthService(secret, secretFile string, tokenExpiry time.Duration) (*AuthService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" && secretFile != "" {
		data, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read secret file: %w", err)
		}
		secret = strings.TrimSpace(string(data))
	}
	if secret == "" {
		var err error
		if secret, err = loadOrCreateSecret(defaultSecretPath()); err != nil {
			return nil, err
		}
	}

	if len(secret) < minSecretLength {
		logger.Warnf("[AUTH] Secret key is only %d bytes. Recommended minimum is %d bytes for HMAC-SHA256", len(secret), minSecretLength)
	}
	if tokenExpiry <= 0 {
		tokenExpiry = 90 * 24 * time.Hour
	}

	return &AuthService{
		secretKey:   secret,
		tokenExpiry: tokenExpiry,
	}, nil
}

func defaultSecretPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return filepath.Join(os.TempDir(), secretKeyName)
	}
	return filepath.Join(homeDir, secretKeyName)
}

func loadOrCreateSecret(keyFile string) (string, error) {
	if data, err := os.ReadFile(keyFile); err == nil && len(strings.TrimSpace(string(data))) > 0 {
		logger.Infof("[AUTH] Loaded persisted secret key from %s", keyFile)
		return strings.TrimSpace(string(data)), nil
	}

	randomBytes := make([]byte, minSecretLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("generate secret key: %w", err)
	}
	secret := hex.EncodeToString(randomBytes)

	if err := os.WriteFile(keyFile, []byte(secret), 0600); err != nil {
		logger.Warnf("[AUTH] Could not persist secret key to %s: %v", keyFile, err)
	} else {
		logger.Infof("[AUTH] Generated and persisted secret key to %s", keyFile)
	}
	return secret, nil
}

// GenerateToken creates a signed token for an operator
func (a *AuthService) GenerateToken(operator string) (string, time.Time, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return "", time.Time{}, apperr.New(apperr.KindValidation, "operator name is required")
	}

	now := time.Now()
	expiresAt := now.Add(a.tokenExpiry)

	claims := OperatorClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(a.secretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ValidateToken verifies and parses a token
func (a *AuthService) ValidateToken(tokenString string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.secretKey), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
