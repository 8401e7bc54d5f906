package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// TokenStore holds per-user OAuth tokens. Get returns (nil, nil) when no
// token is stored.
type TokenStore interface {
	Get(ctx context.Context, userID string) (*oauth2.Token, error)
	Put(ctx context.Context, userID string, tok *oauth2.Token) error
	Delete(ctx context.Context, userID string) error
}

// NewRedisClient connects and pings within two seconds.
func NewRedisClient(ctx context.Context, addr, password string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

type RedisTokenStore struct {
	client *goredis.Client
	prefix string
}

func NewRedisTokenStore(client *goredis.Client) *RedisTokenStore {
	return &RedisTokenStore{
		client: client,
		prefix: "zoomtoken:",
	}
}

func (r *RedisTokenStore) key(userID string) string {
	return r.prefix + userID
}

func (r *RedisTokenStore) Get(ctx context.Context, userID string) (*oauth2.Token, error) {
	val, err := r.client.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(val), &tok); err != nil {
		return nil, fmt.Errorf("token: failed to unmarshal: %w", err)
	}
	return &tok, nil
}

// Put stores tok until its expiry. Tokens without an expiry never expire.
func (r *RedisTokenStore) Put(ctx context.Context, userID string, tok *oauth2.Token) error {
	if strings.TrimSpace(userID) == "" || tok == nil {
		return errors.New("token: missing user id or token")
	}

	var ttl time.Duration
	if !tok.Expiry.IsZero() {
		ttl = time.Until(tok.Expiry)
		if ttl <= 0 {
			return r.client.Del(ctx, r.key(userID)).Err()
		}
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("token: failed to marshal: %w", err)
	}
	return r.client.Set(ctx, r.key(userID), data, ttl).Err()
}

func (r *RedisTokenStore) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

// MemoryTokenStore is used when Redis is not configured.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*oauth2.Token
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*oauth2.Token)}
}

func (m *MemoryTokenStore) Get(_ context.Context, userID string) (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[userID]
	if !ok {
		return nil, nil
	}
	cp := *tok
	return &cp, nil
}

func (m *MemoryTokenStore) Put(_ context.Context, userID string, tok *oauth2.Token) error {
	if strings.TrimSpace(userID) == "" || tok == nil {
		return errors.New("token: missing user id or token")
	}
	cp := *tok
	m.mu.Lock()
	m.tokens[userID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokenStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.tokens, userID)
	m.mu.Unlock()
	return nil
}
