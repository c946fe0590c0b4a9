package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"davinci-duel/internal/gamestate"
)

var (
	ErrNoToken      = errors.New("no_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrTokenRevoked = errors.New("token_revoked")
	ErrBadPassword  = errors.New("bad_password")
)

type Claims struct {
	UserID    int64  `json:"userId"`
	UserEmail string `json:"userEmail"`
	jwt.RegisteredClaims
}

// Service issues and verifies bearer tokens. A live token is also recorded
// in the shared cache under access:<email>, so logout or expiry there
// revokes it everywhere.
type Service struct {
	secret []byte
	kv     gamestate.KV
	ttl    time.Duration
}

func New(secret string, kv gamestate.KV, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), kv: kv, ttl: ttl}
}

// Issue signs a token for the user and records it as the live token.
func (s *Service) Issue(ctx context.Context, userID int64, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		UserEmail: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, accessKey(email), token, s.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Verify parses a bearer credential and returns the numeric player
// identity. The token must both carry a valid signature and still be the
// recorded live token for its user.
func (s *Service) Verify(ctx context.Context, bearer string) (int64, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(bearer, "Bearer "))
	if raw == "" {
		return 0, ErrNoToken
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	if claims.UserID <= 0 || claims.UserEmail == "" {
		return 0, ErrInvalidToken
	}
	stored, err := s.kv.Get(ctx, accessKey(claims.UserEmail))
	if errors.Is(err, gamestate.ErrNotFound) {
		return 0, ErrTokenRevoked
	}
	if err != nil {
		return 0, err
	}
	if stored != raw {
		return 0, ErrTokenRevoked
	}
	return claims.UserID, nil
}

// Revoke drops the live-token record, invalidating outstanding tokens.
func (s *Service) Revoke(ctx context.Context, email string) error {
	return s.kv.Del(ctx, accessKey(email))
}

func accessKey(email string) string {
	return "access:" + email
}

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}

func CheckPassword(hash, password string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrBadPassword
	}
	return nil
}
