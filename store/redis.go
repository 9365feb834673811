package store

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mainframehq/paymo-go/types"
	"github.com/mainframehq/paymo-go/utils"
)

// RedisStore keeps each record as a JSON string under its path key, plus a
// per-namespace sorted set scored by timestamp so history reads come back
// ordered without scanning.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// NewRedisStoreFromClient wraps an existing client, for callers that
// already manage one.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Put(ctx context.Context, key string, rec *types.TransactionRecord) error {
	data, err := utils.SerializeRecord(rec)
	if err != nil {
		return types.Errorf(types.ErrStoreError, "serialize record: %v", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, redisKey(key), data, 0)
	pipe.ZAdd(ctx, indexKey(key), redis.Z{
		Score:  float64(rec.Timestamp),
		Member: rec.TxHash,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return types.Errorf(types.ErrStoreError, "write record %s: %v", key, err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context, account, network string) ([]*types.TransactionRecord, error) {
	ns := Namespace(account, network)

	hashes, err := r.client.ZRange(ctx, redisKey(ns)+":index", 0, -1).Result()
	if err != nil {
		return nil, types.Errorf(types.ErrStoreError, "list %s: %v", ns, err)
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = redisKey(Key(account, network, h))
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, types.Errorf(types.ErrStoreError, "read records %s: %v", ns, err)
	}

	out := make([]*types.TransactionRecord, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// index entry without a record; skip rather than fail the view
			continue
		}
		rec, err := utils.ParseRecord([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// redisKey flattens a path key into redis's conventional colon form.
func redisKey(key string) string {
	return strings.ReplaceAll(key, "/", ":")
}

// indexKey names the sorted set for the record's namespace.
func indexKey(key string) string {
	account, network, _, err := SplitKey(key)
	if err != nil {
		return redisKey(key) + ":index"
	}
	return redisKey(Namespace(account, network)) + ":index"
}
