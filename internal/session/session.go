// Package session maps bearer tokens to users. Every token names a stored
// session with an expiry, so revocation and logout take effect immediately.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
)

const issuer = "ducknest"

// ErrNotFound is returned by stores for absent or expired sessions.
var ErrNotFound = errors.New("session: not found")

type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// Store persists the token-to-user mapping.
type Store interface {
	Save(ctx context.Context, s Session) error
	Find(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, userID string) error
}

// Token is a signed bearer token and the session it names.
type Token struct {
	Value   string
	Session Session
}

type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret []byte, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: secret, ttl: ttl, now: time.Now}
}

// Issue stores a new session for userID and signs a token for it.
func (m *Manager) Issue(ctx context.Context, userID string) (Token, error) {
	now := m.now().UTC().Truncate(time.Second)
	s := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return Token{}, apperr.FromStore(err, "session.Issue")
	}

	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   s.UserID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("session.Issue sign: %w", err)
	}
	return Token{Value: signed, Session: s}, nil
}

// Authenticate verifies raw and returns the live session it names.
func (m *Manager) Authenticate(ctx context.Context, raw string) (Session, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || claims.ID == "" {
		return Session{}, apperr.New(apperr.Unauthorized, "invalid session token")
	}

	s, err := m.store.Find(ctx, claims.ID)
	if errors.Is(err, ErrNotFound) {
		return Session{}, apperr.New(apperr.Unauthorized, "session expired or revoked")
	}
	if err != nil {
		return Session{}, apperr.FromStore(err, "session.Authenticate")
	}
	if s.UserID != claims.Subject || !m.now().Before(s.ExpiresAt) {
		return Session{}, apperr.New(apperr.Unauthorized, "session expired or revoked")
	}
	return s, nil
}

func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	return apperr.FromStore(m.store.Delete(ctx, sessionID), "session.Revoke")
}

func (m *Manager) RevokeAll(ctx context.Context, userID string) error {
	return apperr.FromStore(m.store.DeleteUser(ctx, userID), "session.RevokeAll")
}
