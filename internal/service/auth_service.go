package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/campus-admin-backend/internal/config"
	"github.com/stemsi/campus-admin-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
)

// Claims extends JWT standard claims with the admin identity and role.
type Claims struct {
	jwt.RegisteredClaims
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// AuthService verifies the admin credentials and issues and validates tokens.
// It holds no per-token state: the signing secret is the only trust anchor.
type AuthService struct {
	username     string
	passwordHash []byte
	secret       []byte
	expiry       time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewAuthService builds the service from the configured admin identity.
// A plaintext password is hashed once here so that comparisons always go
// through bcrypt.
func NewAuthService(cfg *config.Config, log zerolog.Logger) (*AuthService, error) {
	hash := []byte(cfg.Admin.PasswordHash)
	if len(hash) == 0 {
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		hash = h
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("parse ADMIN_PASSWORD_HASH: %w", err)
	}

	return &AuthService{
		username:     cfg.Admin.Username,
		passwordHash: hash,
		secret:       []byte(cfg.Admin.SigningSecret),
		expiry:       cfg.JWTExpiry,
		now:          time.Now,
		log:          log.With().Str("component", "auth_service").Logger(),
	}, nil
}

// Login checks the credentials and returns a signed token for the admin.
func (s *AuthService) Login(username, password string) (string, *Claims, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		s.log.Warn().Str("username", username).Msg("rejected login")
		return "", nil, ErrInvalidCredentials
	}

	token, claims, err := s.IssueToken(username)
	if err != nil {
		return "", nil, err
	}
	s.log.Info().Str("username", username).Time("expires_at", claims.ExpiresAt.Time).Msg("admin logged in")
	return token, claims, nil
}

// IssueToken creates a JWT with the admin role for username.
func (s *AuthService) IssueToken(username string) (string, *Claims, error) {
	now := s.now()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		Username: username,
		Role:     model.RoleAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
// Expired tokens yield ErrTokenExpired; every other failure ErrTokenInvalid.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
