package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Principal is the authenticated identity attached to a request. Actor is
// what the audit trail records.
type Principal struct {
	Actor string
	Roles []string
}

// AuthService issues and validates the HMAC-signed bearer tokens protecting
// the CRUD endpoints.
type AuthService struct {
	jwtSecret []byte
	expiry    time.Duration
}

func NewAuthService(jwtSecret string, expiry time.Duration) *AuthService {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &AuthService{jwtSecret: []byte(jwtSecret), expiry: expiry}
}

// IssueToken creates a signed token for an actor.
func (s *AuthService) IssueToken(actor string, roles []string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Actor: actor,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			Issuer:    "ssf",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken verifies a bearer token and returns the principal it names.
func (s *AuthService) ValidateToken(tokenStr string) (*Principal, error) {
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}

	actor := claims.Actor
	if actor == "" {
		actor = claims.Subject
	}
	if actor == "" {
		return nil, ErrInvalidCredentials
	}
	return &Principal{Actor: actor, Roles: claims.Roles}, nil
}

type tokenClaims struct {
	Actor string   `json:"actor"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}
