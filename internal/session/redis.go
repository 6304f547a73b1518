package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "ducknest:session:"
	userKeyPrefix    = "ducknest:user-sessions:"
)

// RedisStore keeps sessions as expiring keys. A per-user set indexes them
// for DeleteUser.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore connects to url and verifies the connection.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisStore{client: c, now: time.Now}, nil
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return errors.New("RedisStore.Save: session already expired")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("RedisStore.Save: %w", err)
	}

	userKey := userKeyPrefix + s.UserID
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKeyPrefix+s.ID, payload, ttl)
		p.SAdd(ctx, userKey, s.ID)
		// Sessions share one TTL, so the newest member sets the index expiry.
		p.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("RedisStore.Save: %w", err)
	}
	return nil
}

func (r *RedisStore) Find(ctx context.Context, id string) (Session, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("RedisStore.Find: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("RedisStore.Find decode: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	s, err := r.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKeyPrefix+id)
		p.SRem(ctx, userKeyPrefix+s.UserID, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("RedisStore.Delete: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteUser(ctx context.Context, userID string) error {
	userKey := userKeyPrefix + userID
	ids, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("RedisStore.DeleteUser: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKeyPrefix+id)
	}
	keys = append(keys, userKey)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("RedisStore.DeleteUser: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
