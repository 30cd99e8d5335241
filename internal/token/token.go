// Package token mints and verifies the two classes of signed session tokens.
//
// Access tokens are short-lived and travel in the Authorization header.
// Refresh tokens are long-lived, signed with a different secret, and are only
// honoured while a matching record exists in the refresh store.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the single error returned for malformed, expired,
// mis-signed or wrong-class tokens.
var ErrInvalidToken = errors.New("invalid token")

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Identity is the payload carried by both token classes.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

type Pair struct {
	AccessToken  string
	RefreshToken string
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type claims struct {
	Email string `json:"email"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

type Service struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, for tests that cross expiry boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}

	s := &Service{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssuePair mints a fresh access/refresh pair for id.
func (s *Service) IssuePair(id Identity) (Pair, error) {
	access, err := s.sign(id, typeAccess, s.accessTTL, s.accessKey)
	if err != nil {
		return Pair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(id, typeRefresh, s.refreshTTL, s.refreshKey)
	if err != nil {
		return Pair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) VerifyAccess(token string) (Identity, error) {
	return s.verify(token, typeAccess, s.accessKey)
}

func (s *Service) VerifyRefresh(token string) (Identity, error) {
	return s.verify(token, typeRefresh, s.refreshKey)
}

func (s *Service) sign(id Identity, typ string, ttl time.Duration, key []byte) (string, error) {
	now := s.now()
	c := claims{
		Email: id.Email,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(key)
}

func (s *Service) verify(tokenString, typ string, key []byte) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrInvalidToken
	}

	var c claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	tok, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}
	if c.Type != typ {
		return Identity{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID, Email: c.Email}, nil
}
