package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"schoolschedule/internal/crypto"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidToken    = errors.New("invalid session token")
)

type Session struct {
	UserID    int32     `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionStore interface {
	Put(ctx context.Context, sessionID string, session Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisSessionStore keys sessions by the hash of their token, so a dump of
// Redis does not expose usable cookies.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(sessionID string) string {
	return "session:" + crypto.HashToken(sessionID)
}

func (s *RedisSessionStore) Put(ctx context.Context, sessionID string, session Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(sessionID), payload, ttl).Err()
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}

// Manager issues and resolves session cookies.
type Manager struct {
	store  SessionStore
	secret string
	issuer string
	ttl    time.Duration
}

func NewManager(store SessionStore, secret, issuer string, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: secret, issuer: issuer, ttl: ttl}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start creates a session for the user and returns the signed cookie value.
func (m *Manager) Start(ctx context.Context, userID int32, role string) (string, error) {
	sessionID, err := crypto.NewSessionToken()
	if err != nil {
		return "", err
	}
	session := Session{UserID: userID, Role: role, CreatedAt: time.Now().UTC()}
	if err := m.store.Put(ctx, sessionID, session, m.ttl); err != nil {
		return "", err
	}
	return NewSessionCookieToken(m.secret, m.issuer, sessionID, m.ttl, Claims{UserID: userID, Role: role})
}

// Resolve verifies the cookie signature and that the session is still live.
// The role comes from the server-side session. A bad cookie yields
// ErrInvalidToken and an unknown session ErrSessionNotFound; any other error
// comes from the session store.
func (m *Manager) Resolve(ctx context.Context, cookieValue string) (*Claims, error) {
	claims, err := ParseToken(m.secret, m.issuer, cookieValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	session, err := m.store.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, ErrSessionNotFound
	}
	claims.Role = session.Role
	return claims, nil
}

func (m *Manager) End(ctx context.Context, cookieValue string) error {
	claims, err := ParseToken(m.secret, m.issuer, cookieValue)
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, claims.ID)
}
