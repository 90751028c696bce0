package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found or expired")

// storedSession is the Redis representation of a session.
type storedSession struct {
	SealedToken string    `json:"sealed_token"`
	Login       string    `json:"login"`
	CreatedAt   time.Time `json:"created_at"`
}

// RedisStore keeps sessions and per-user preferences in Redis.
type RedisStore struct {
	client     *redis.Client
	sealer     *sealer
	prefix     string
	prefPrefix string
}

// NewRedisStore connects to redisURL. secret keys the encryption of stored
// access tokens.
func NewRedisStore(redisURL, secret string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, secret)
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client, secret string) (*RedisStore, error) {
	s, err := newSealer(secret)
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		client:     client,
		sealer:     s,
		prefix:     "git_journal_session:",
		prefPrefix: PreferencesKeyPrefix,
	}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Save stores sess under sessionID for ttl.
func (s *RedisStore) Save(ctx context.Context, sessionID string, sess Session, ttl time.Duration) error {
	if err := Require(sess); err != nil {
		return err
	}
	sealed, err := s.sealer.seal(sess.AccessToken)
	if err != nil {
		return err
	}
	data, err := json.Marshal(storedSession{
		SealedToken: sealed,
		Login:       sess.Login,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if ttl <= 0 {
		return fmt.Errorf("save session: ttl %s must be positive", ttl)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Lookup returns the session stored under sessionID.
func (s *RedisStore) Lookup(ctx context.Context, sessionID string) (Session, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	token, err := s.sealer.open(stored.SealedToken)
	if err != nil {
		return Session{}, fmt.Errorf("open session token: %w", err)
	}
	return Session{AccessToken: token, Login: stored.Login}, nil
}

// Revoke deletes a session. Unknown ids are not an error.
func (s *RedisStore) Revoke(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
