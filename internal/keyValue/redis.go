package keyValue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	valueField    = "value"
	revisionField = "rev"

	// revisionsKey remembers the last revision of every key, it outlives DEL and expiry
	revisionsKey = "keyValue:revisions"
)

// Redis stores each key as a hash holding the value and its revision.
// Conditional writes run under WATCH so a concurrent writer aborts the transaction.
type Redis struct {
	redisClient *redis.Client
	sugar       *zap.SugaredLogger
}

var _ Store = (*Redis)(nil)

func NewRedis(sugar *zap.SugaredLogger, redisClient *redis.Client) *Redis {
	return &Redis{redisClient: redisClient, sugar: sugar}
}

func (r *Redis) Get(ctx context.Context, key string) (Entry, error) {
	r.sugar.Debugf("Getting value of key [%s] from redis", key)

	values, err := r.redisClient.HMGet(ctx, key, valueField, revisionField).Result()
	if err != nil {
		return Entry{}, err
	}

	if values[0] == nil || values[1] == nil {
		return Entry{}, nil
	}

	return parseEntry(values[0], values[1])
}

func parseEntry(rawValue, rawRevision any) (Entry, error) {
	value, ok := rawValue.(string)
	if !ok {
		return Entry{}, fmt.Errorf("unexpected value type %T", rawValue)
	}

	revisionString, ok := rawRevision.(string)
	if !ok {
		return Entry{}, fmt.Errorf("unexpected revision type %T", rawRevision)
	}

	revision, err := strconv.ParseInt(revisionString, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parse revision: %w", err)
	}

	return Entry{Value: value, Revision: revision}, nil
}

func (r *Redis) Put(ctx context.Context, key string, value string, expectedRevision int64, expires time.Duration) (int64, error) {
	r.sugar.Debugf("Setting value of key [%s] in redis, expected revision [%d]", key, expectedRevision)

	var next int64

	txf := func(tx *redis.Tx) error {
		live, err := tx.HGet(ctx, key, revisionField).Int64()
		if errors.Is(err, redis.Nil) {
			live = 0
		} else if err != nil {
			return err
		}

		if !revisionMatches(expectedRevision, live) {
			return ErrRevisionMismatch
		}

		last, err := tx.HGet(ctx, revisionsKey, key).Int64()
		if errors.Is(err, redis.Nil) {
			last = 0
		} else if err != nil {
			return err
		}

		next = max(live, last) + 1

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, valueField, value, revisionField, next)
			pipe.HSet(ctx, revisionsKey, key, next)
			if expires > 0 {
				pipe.PExpire(ctx, key, expires)
			} else {
				pipe.Persist(ctx, key)
			}
			return nil
		})
		return err
	}

	err := r.redisClient.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return 0, ErrRevisionMismatch
	} else if err != nil {
		return 0, err
	}

	return next, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	r.sugar.Debugf("Deleting key [%s] from redis", key)
	return r.redisClient.Del(ctx, key).Err()
}

// Close leaves the client open, it is shared with the hub.
func (r *Redis) Close() error {
	return nil
}
