package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baseportal/baseportal-go-sdk/api"
)

// redisStore keeps the scoped state as one JSON blob under the scope key.
// The TTL is refreshed on every read so active sessions never expire.
type redisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (s *redisStore) ConversationID(ctx context.Context) (string, error) {
	st, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return st.ConversationID, nil
}

func (s *redisStore) SetConversationID(ctx context.Context, id string) error {
	return s.merge(ctx, func(st *State) {
		st.ConversationID = id
	})
}

func (s *redisStore) Visitor(ctx context.Context) (*api.VisitorData, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return st.Visitor, nil
}

func (s *redisStore) SetVisitor(ctx context.Context, v *api.VisitorData) error {
	return s.merge(ctx, func(st *State) {
		st.Visitor = v
	})
}

func (s *redisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func (s *redisStore) load(ctx context.Context) (State, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}

	var st State
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return State{}, err
	}

	// Refresh TTL on read
	_ = s.client.Expire(ctx, s.key, s.ttl).Err()

	return st, nil
}

// merge applies a read-modify-write under WATCH so concurrent writers to
// the same scope never clobber each other's field.
func (s *redisStore) merge(ctx context.Context, apply func(*State)) error {
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		var st State
		val, err := tx.Get(ctx, s.key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			if err := json.Unmarshal([]byte(val), &st); err != nil {
				st = State{}
			}
		}

		apply(&st)

		newVal, err := json.Marshal(st)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, newVal, s.ttl)
			return nil
		})
		return err
	}, s.key)
}
