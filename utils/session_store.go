package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when a token names no live session.
var ErrNoSession = errors.New("session not found")

// sessionTokenLifetime caps a token regardless of activity; the Redis TTL enforces idleness.
const sessionTokenLifetime = 24 * time.Hour

// Session is the per-client state established at login.
type Session struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// SessionStore keeps sessions in Redis under an idle TTL. Clients hold a signed token
// naming their session.
type SessionStore struct {
	rdb    *redis.Client
	secret []byte
	idle   time.Duration
}

// NewSessionStore creates a store with the given signing secret and idle expiry.
func NewSessionStore(rdb *redis.Client, secret string, idle time.Duration) *SessionStore {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &SessionStore{rdb: rdb, secret: []byte(secret), idle: idle}
}

// Idle returns the idle expiry.
func (s *SessionStore) Idle() time.Duration { return s.idle }

func sessionKey(id string) string {
	return "session:" + id
}

// Create stores sess and returns the token to hand to the client.
func (s *SessionStore) Create(ctx context.Context, sess Session) (string, error) {
	id := uuid.NewString()
	b, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, sessionKey(id), b, s.idle).Err(); err != nil {
		return "", err
	}
	return GenerateSessionToken(s.secret, id, sessionTokenLifetime)
}

// Load returns the session named by token and slides its idle expiry.
func (s *SessionStore) Load(ctx context.Context, token string) (*Session, error) {
	claims, err := ParseSessionToken(s.secret, token)
	if err != nil {
		return nil, ErrNoSession
	}
	key := sessionKey(claims.SessionID)
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, err
	}
	if err := s.rdb.Expire(ctx, key, s.idle).Err(); err != nil {
		Sugar.Warnf("session ttl refresh failed: %v", err)
	}
	return &sess, nil
}

// Destroy removes the session named by token. Unknown or invalid tokens are ignored.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	claims, err := ParseSessionToken(s.secret, token)
	if err != nil {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(claims.SessionID)).Err()
}
