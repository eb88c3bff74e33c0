package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"murmur/common"
)

// Redis keys
const (
	redisBundleKey      = "bundle:%s"
	redisOneTimeKeysKey = "oneTimeKeys:%s"
	redisMessageKey     = "message:%s"
)

// RedisStore is the shared-deployment alternative to MemoryStore. One-time
// keys live in a list so every fetch pops atomically; queued initial messages
// expire through the key TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

type redisBundleRecord struct {
	PubKey        []byte `json:"pubKey"`
	PubSignPreKey []byte `json:"pubSignPreKey"`
	PreKeySig     []byte `json:"preKeySig"`
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

var _ BundleStore = (*RedisStore)(nil)
var _ MessageStore = (*RedisStore)(nil)

func (s *RedisStore) Publish(ctx context.Context, id string, bundle common.Bundle) error {
	bundleKey := fmt.Sprintf(redisBundleKey, id)

	existing, err := s.rdb.Get(ctx, bundleKey).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if err == nil {
		var record redisBundleRecord
		if err := json.Unmarshal(existing, &record); err != nil {
			return err
		}
		if bytes.Equal(record.PreKeySig, bundle.PreKeySig) {
			return ErrSameSignature
		}
	}

	data, err := json.Marshal(redisBundleRecord{
		PubKey:        bundle.PubKey,
		PubSignPreKey: bundle.PubSignPreKey,
		PreKeySig:     bundle.PreKeySig,
	})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, bundleKey, data, 0).Err(); err != nil {
		return err
	}

	if len(bundle.OneTimeKeys) == 0 {
		return nil
	}
	oneTime := make([]interface{}, 0, len(bundle.OneTimeKeys))
	for _, key := range bundle.OneTimeKeys {
		oneTime = append(oneTime, key)
	}
	return s.rdb.RPush(ctx, fmt.Sprintf(redisOneTimeKeysKey, id), oneTime...).Err()
}

func (s *RedisStore) Fetch(ctx context.Context, id string) (common.FetchedBundle, error) {
	data, err := s.rdb.Get(ctx, fmt.Sprintf(redisBundleKey, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return common.FetchedBundle{}, ErrBundleNotFound
	}
	if err != nil {
		return common.FetchedBundle{}, err
	}
	var record redisBundleRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return common.FetchedBundle{}, err
	}

	oneTime, err := s.rdb.LPop(ctx, fmt.Sprintf(redisOneTimeKeysKey, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return common.FetchedBundle{}, ErrNoOneTimeKeys
	}
	if err != nil {
		return common.FetchedBundle{}, err
	}

	return common.FetchedBundle{
		PubSignPreKey: record.PubSignPreKey,
		PreKeySig:     record.PreKeySig,
		OneTimeKey:    oneTime,
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, sid string, msg common.InitialMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, fmt.Sprintf(redisMessageKey, sid), data, s.ttl).Err()
}

func (s *RedisStore) Take(ctx context.Context, sid string) (common.InitialMessage, error) {
	data, err := s.rdb.GetDel(ctx, fmt.Sprintf(redisMessageKey, sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return common.InitialMessage{}, ErrMessageNotFound
	}
	if err != nil {
		return common.InitialMessage{}, err
	}
	var msg common.InitialMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return common.InitialMessage{}, err
	}
	return msg, nil
}
