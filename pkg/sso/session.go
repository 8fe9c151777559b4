package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// AuthSession is the host-side state of one login attempt between the
// authorization request and the email form post.
type AuthSession struct {
	Code        string            `json:"code"`
	Realm       string            `json:"realm"`
	ClientID    string            `json:"client_id"`
	RedirectURI string            `json:"redirect_uri"`
	ClientNotes map[string]string `json:"client_notes"`
	AuthNotes   map[string]string `json:"auth_notes"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewAuthSession creates a session with a fresh random code
func NewAuthSession(realm, clientID, redirectURI string) *AuthSession {
	return &AuthSession{
		Code:        uuid.NewString(),
		Realm:       realm,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		ClientNotes: map[string]string{},
		AuthNotes:   map[string]string{},
		CreatedAt:   time.Now().UTC(),
	}
}

// SessionStore persists AuthSessions keyed by their code
type SessionStore interface {
	Save(ctx context.Context, session *AuthSession) error
	Get(ctx context.Context, code string) (*AuthSession, error)
	Delete(ctx context.Context, code string) error
}

// MemorySessionStore keeps sessions in process with a bounded size and TTL
type MemorySessionStore struct {
	lru *expirable.LRU[string, AuthSession]
}

// NewMemorySessionStore creates an in-process session store
func NewMemorySessionStore(size int, ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		lru: expirable.NewLRU[string, AuthSession](size, nil, ttl),
	}
}

// Save stores a copy of session
func (s *MemorySessionStore) Save(ctx context.Context, session *AuthSession) error {
	s.lru.Add(session.Code, cloneSession(session))
	return nil
}

// Get returns a copy of the stored session or ErrSessionNotFound
func (s *MemorySessionStore) Get(ctx context.Context, code string) (*AuthSession, error) {
	session, ok := s.lru.Get(code)
	if !ok {
		return nil, ErrSessionNotFound
	}
	c := cloneSession(&session)
	return &c, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, code string) error {
	s.lru.Remove(code)
	return nil
}

func cloneSession(session *AuthSession) AuthSession {
	c := *session
	c.ClientNotes = make(map[string]string, len(session.ClientNotes))
	for k, v := range session.ClientNotes {
		c.ClientNotes[k] = v
	}
	c.AuthNotes = make(map[string]string, len(session.AuthNotes))
	for k, v := range session.AuthNotes {
		c.AuthNotes[k] = v
	}
	return c
}

const sessionKeyPrefix = "idp-redirect:session:"

// RedisSessionStore keeps sessions in redis as JSON with a TTL
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a redis-backed session store
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

// NewRedisClient parses url and verifies the server is reachable
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func sessionKey(code string) string {
	return sessionKeyPrefix + code
}

func (s *RedisSessionStore) Save(ctx context.Context, session *AuthSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.Code), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, code string) (*AuthSession, error) {
	data, err := s.client.Get(ctx, sessionKey(code)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session AuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.ClientNotes == nil {
		session.ClientNotes = map[string]string{}
	}
	if session.AuthNotes == nil {
		session.AuthNotes = map[string]string{}
	}
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, sessionKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
