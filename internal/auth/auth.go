package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims represents the service-token JWT claims. Caller identifies the
// service presenting the token (e.g. "backend").
type Claims struct {
	Caller string `json:"caller"`
	jwt.RegisteredClaims
}

// Service validates and issues service-to-service tokens.
type Service interface {
	IssueToken(caller string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Config holds authentication configuration
type Config struct {
	SecretKey     string
	TokenDuration time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		TokenDuration: 24 * time.Hour,
	}
}

// JWTService implements the Service interface with HS256 tokens.
type JWTService struct {
	config Config
}

// NewJWTService creates a new JWT-based authentication service
func NewJWTService(config Config) *JWTService {
	if config.TokenDuration == 0 {
		config.TokenDuration = DefaultConfig().TokenDuration
	}
	return &JWTService{config: config}
}

// IssueToken signs a token for the named calling service.
func (s *JWTService) IssueToken(caller string) (string, error) {
	claims := &Claims{
		Caller: caller,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.SecretKey))
}

// ValidateToken validates a JWT token and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.SecretKey), nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
