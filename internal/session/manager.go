package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/energia/energia-dashboard/internal/domain"
)

// Authenticator checks credentials against the remote API.
type Authenticator interface {
	Authenticate(ctx context.Context, creds domain.Credentials) (*domain.Identity, error)
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Manager struct {
	store  Store
	auth   Authenticator
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, auth Authenticator, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Manager{store: store, auth: auth, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Login authenticates creds and returns the new session and the signed
// cookie value for it. The session never outlives the API token.
func (m *Manager) Login(ctx context.Context, creds domain.Credentials) (*Session, string, error) {
	id, err := m.auth.Authenticate(ctx, creds)
	if err != nil {
		return nil, "", err
	}

	now := m.now()
	expires := now.Add(m.ttl)
	if !id.ExpiresAt.IsZero() && id.ExpiresAt.Before(expires) {
		expires = id.ExpiresAt
	}
	if !now.Before(expires) {
		return nil, "", ErrExpired
	}

	s := &Session{
		ID:        uuid.NewString(),
		Username:  id.Username,
		Role:      id.Role,
		APIToken:  id.Token,
		CreatedAt: now,
		ExpiresAt: expires,
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, "", err
	}

	token, err := m.sign(s)
	if err != nil {
		_ = m.store.Delete(ctx, s.ID)
		return nil, "", err
	}
	return s, token, nil
}

// Resolve maps a cookie value back to its live session.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	sid, err := m.parse(token)
	if err != nil {
		return nil, err
	}
	s, err := m.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		_ = m.store.Delete(ctx, sid)
		return nil, ErrExpired
	}
	return s, nil
}

// Logout forgets the session behind token. Unknown or expired tokens are
// not an error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	sid, err := m.parse(token)
	if err != nil {
		if errors.Is(err, ErrExpired) {
			return nil
		}
		return err
	}
	return m.store.Delete(ctx, sid)
}

func (m *Manager) sign(s *Session) (string, error) {
	c := claims{
		Username: s.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpired
	case err != nil:
		return "", ErrInvalidToken
	case c.ID == "":
		return "", ErrInvalidToken
	}
	return c.ID, nil
}
