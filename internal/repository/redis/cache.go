package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache fronts the CMS and availability reads. Content entries live for
// hours since copy changes rarely; availability entries for seconds.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// GetJSON reads and decodes one entry. The bool reports whether the key
// was present; a decode failure counts as a miss with an error.
func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, false, err
	}

	return out, true, nil
}

func SetJSON(ctx context.Context, c *Cache, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// GetOrSetJSON loads through the cache, collapsing concurrent misses
// for the same key into one loader call.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok, err := GetJSON[T](ctx, c, key); err != nil || ok {
		return v, err
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v2, ok2, err2 := GetJSON[T](ctx, c, key); err2 != nil || ok2 {
			return v2, err2
		}
		v3, err3 := loader(ctx)
		if err3 != nil {
			return nil, err3
		}
		_ = SetJSON(ctx, c, key, v3, ttl)
		return v3, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, errors.New("type assertion failed")
	}

	return v, nil
}

func (c *Cache) InvalidateCourse(ctx context.Context, courseID int64, slug string) error {
	keys := []string{
		KeyCourseAvailability(courseID),
		KeyContentCourseList(),
	}
	if slug != "" {
		keys = append(keys, KeyContentCourse(slug))
	}
	return c.Del(ctx, keys...)
}

func (c *Cache) InvalidateShow(ctx context.Context, slug string) error {
	keys := []string{KeyContentShowList()}
	if slug != "" {
		keys = append(keys, KeyContentShow(slug))
	}
	return c.Del(ctx, keys...)
}
