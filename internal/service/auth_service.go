package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gstaudit/internal/config"
	"gstaudit/internal/domain"
)

// tokenAudience is the audience of API access tokens.
const tokenAudience = "gstaudit-api"

// Claims represents the JWT claims of an API caller.
type Claims struct {
	jwt.RegisteredClaims
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthService issues and verifies API credentials: HS256 bearer tokens and
// bcrypt-hashed API keys.
type AuthService interface {
	IssueToken(subject string) (*Token, error)
	ValidateToken(tokenString string) (*Claims, error)
	// ValidateAPIKey returns domain.ErrUnauthorized unless key matches one of
	// the configured hashes.
	ValidateAPIKey(key string) error
}

type authService struct {
	cfg    config.JWTConfig
	hashes [][]byte
	now    func() time.Time
}

// NewAuthService creates a new AuthService implementation.
func NewAuthService(jwtCfg config.JWTConfig, apiKeyHashes []string) AuthService {
	hashes := make([][]byte, 0, len(apiKeyHashes))
	for _, h := range apiKeyHashes {
		hashes = append(hashes, []byte(h))
	}
	if jwtCfg.TokenExpiry <= 0 {
		jwtCfg.TokenExpiry = 12 * time.Hour
	}
	return &authService{cfg: jwtCfg, hashes: hashes, now: time.Now}
}

func (s *authService) IssueToken(subject string) (*Token, error) {
	if subject == "" {
		return nil, errors.New("token subject is required")
	}
	now := s.now()
	expiry := now.Add(s.cfg.TokenExpiry)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{tokenAudience},
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	return &Token{AccessToken: signed, ExpiresAt: expiry}, nil
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing token: %v", domain.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

func (s *authService) ValidateAPIKey(key string) error {
	if key == "" {
		return domain.ErrUnauthorized
	}
	for _, h := range s.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			return nil
		}
	}
	return domain.ErrUnauthorized
}
