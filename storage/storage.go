// Package storage persists the widget's local state: the active
// conversation id and the cached visitor profile, scoped by channel
// credential and visitor identity. The memory driver mirrors browser-local
// storage for a single process; the redis driver gives server-side
// embeddings cross-process continuity.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baseportal/baseportal-go-sdk/api"
)

// Common errors for store construction.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidStoreType = errors.New("invalid store type")
)

// State is the stored value: both fields optional, written independently.
type State struct {
	ConversationID string           `json:"conversationId,omitempty"`
	Visitor        *api.VisitorData `json:"visitor,omitempty"`
}

// Store is a scoped key-value adapter for widget state. Writes merge:
// setting one field never clobbers the other. Implementations treat a
// missing value as the zero State, not an error.
type Store interface {
	// ConversationID returns the persisted conversation id, or "" if none.
	ConversationID(ctx context.Context) (string, error)

	// SetConversationID persists the active conversation id.
	SetConversationID(ctx context.Context, id string) error

	// Visitor returns the cached visitor profile, or nil if none.
	Visitor(ctx context.Context) (*api.VisitorData, error)

	// SetVisitor caches the visitor profile.
	SetVisitor(ctx context.Context, v *api.VisitorData) error

	// Clear removes all state under this store's scope.
	Clear(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Key builds the scope key for a channel credential and, when identity is
// known, the visitor email.
func Key(channelToken, email string) string {
	if email != "" {
		return "bp_chat_" + channelToken + "_" + email
	}
	return "bp_chat_" + channelToken
}

// StoreType selects a persistence driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// StoreOption is a functional option for configuring a store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	redisTTL    time.Duration
}

// WithRedisClient sets the Redis client for the redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the TTL applied to redis keys.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// NewStore creates a Store scoped to key. The redis driver requires
// WithRedisClient.
func NewStore(storeType StoreType, key string, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory, "":
		return newMemoryStore(key), nil

	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		ttl := cfg.redisTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		return &redisStore{client: cfg.redisClient, key: key, ttl: ttl}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}
