package tripstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tmscore/scheduler"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl keeps entries until invalidated.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func decorationKey(entity Entity, id int64, view scheduler.ViewMode) string {
	return fmt.Sprintf("tmscore:%s:%d:decoration:%s", entity, id, view)
}

func viewsKey(entity Entity, id int64) string {
	return fmt.Sprintf("tmscore:%s:%d:views", entity, id)
}

// genKey counts invalidations of one entity. It outlives the decorations
// so a write-back can tell it read SQL before the last invalidation.
func genKey(entity Entity, id int64) string {
	return fmt.Sprintf("tmscore:%s:%d:gen", entity, id)
}

func entityMember(entity Entity, id int64) string {
	return fmt.Sprintf("%s:%d", entity, id)
}

const allEntitiesKey = "tmscore:decorated"

// Generation returns the entity's invalidation count, 0 if never invalidated.
func (r *RedisStore) Generation(ctx context.Context, entity Entity, id int64) (int64, error) {
	gen, err := r.client.Get(ctx, genKey(entity, id)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// SetDecoration stores d only while the entity's generation still equals gen.
// It reports false when an invalidation got there first.
func (r *RedisStore) SetDecoration(ctx context.Context, entity Entity, id int64, view scheduler.ViewMode, gen int64, d CachedDecoration) (bool, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return false, err
	}
	gk := genKey(entity, id)
	stored := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, decorationKey(entity, id, view), data, r.ttl)
			pipe.SAdd(ctx, viewsKey(entity, id), string(view))
			pipe.SAdd(ctx, allEntitiesKey, entityMember(entity, id))
			return nil
		})
		stored = err == nil
		return err
	}, gk)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// GetDecoration returns nil, nil on a cache miss.
func (r *RedisStore) GetDecoration(ctx context.Context, entity Entity, id int64, view scheduler.ViewMode) (*CachedDecoration, error) {
	data, err := r.client.Get(ctx, decorationKey(entity, id, view)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d CachedDecoration
	return &d, json.Unmarshal(data, &d)
}

// Invalidate bumps the entity's generation, then drops every cached view.
// Writers that read the old generation either landed before the bump, and
// their view is listed below, or fail their WATCH.
func (r *RedisStore) Invalidate(ctx context.Context, entity Entity, id int64) error {
	if err := r.client.Incr(ctx, genKey(entity, id)).Err(); err != nil {
		return err
	}
	views, err := r.client.SMembers(ctx, viewsKey(entity, id)).Result()
	if err != nil {
		return err
	}
	keys := []string{viewsKey(entity, id)}
	for _, v := range views {
		keys = append(keys, decorationKey(entity, id, scheduler.ViewMode(v)))
	}
	pipe := r.client.Pipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, allEntitiesKey, entityMember(entity, id))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	members, err := r.client.SMembers(ctx, allEntitiesKey).Result()
	if err != nil {
		return err
	}
	for _, m := range members {
		entity, rawID, ok := strings.Cut(m, ":")
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			continue
		}
		r.Invalidate(ctx, Entity(entity), id)
	}
	return r.client.Del(ctx, allEntitiesKey).Err()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
