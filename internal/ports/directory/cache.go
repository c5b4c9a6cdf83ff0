package directory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"presence.service/internal/core/model"
)

const (
	idKeyPrefix    = "directory:id:"
	emailKeyPrefix = "directory:email:"
)

// CachedDirectory is a read-through redis cache in front of another
// Directory. Concurrent misses for the same key share one upstream call.
// Lookup failures are not cached; redis errors degrade to the upstream.
type CachedDirectory struct {
	next  Directory
	rdb   redis.Cmdable
	ttl   time.Duration
	group singleflight.Group
}

func NewCachedDirectory(next Directory, rdb redis.Cmdable, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDirectory{next: next, rdb: rdb, ttl: ttl}
}

// Ids match exactly; emails case-insensitively.
func idKey(id string) string {
	return idKeyPrefix + strings.TrimSpace(id)
}

func emailKey(email string) string {
	return emailKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

// FindByIDOrEmail checks the id entry before the email entry. An email entry
// is only written when the upstream resolved the key by email, so it never
// shadows an employee whose id equals the key.
func (c *CachedDirectory) FindByIDOrEmail(ctx context.Context, key string) (*model.Employee, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return c.next.FindByIDOrEmail(ctx, key)
	}
	if emp, ok := c.get(ctx, idKey(key)); ok {
		return &emp, nil
	}
	if emp, ok := c.get(ctx, emailKey(key)); ok {
		return &emp, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		emp, err := c.next.FindByIDOrEmail(ctx, key)
		if err != nil {
			return nil, err
		}
		keys := []string{idKey(emp.ID)}
		if emp.ID != key {
			keys = append(keys, emailKey(key))
		}
		c.set(ctx, *emp, keys...)
		return *emp, nil
	})
	if err != nil {
		return nil, err
	}
	emp := v.(model.Employee)
	return &emp, nil
}

func (c *CachedDirectory) FindByIDs(ctx context.Context, ids []string) (map[string]model.Employee, error) {
	out := make(map[string]model.Employee, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = idKey(id)
	}

	missing := ids
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("directory cache read failed")
	} else {
		missing = missing[:0:0]
		for i, val := range vals {
			raw, ok := val.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var emp model.Employee
			if err := json.Unmarshal([]byte(raw), &emp); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			out[ids[i]] = emp
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	found, err := c.next.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, emp := range found {
		out[id] = emp
		c.set(ctx, emp, idKey(emp.ID))
	}
	return out, nil
}

func (c *CachedDirectory) get(ctx context.Context, key string) (model.Employee, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("directory cache read failed")
		}
		return model.Employee{}, false
	}
	var emp model.Employee
	if err := json.Unmarshal(raw, &emp); err != nil {
		return model.Employee{}, false
	}
	return emp, true
}

// set stores emp under each of keys.
func (c *CachedDirectory) set(ctx context.Context, emp model.Employee, keys ...string) {
	raw, err := json.Marshal(emp)
	if err != nil {
		return
	}
	pipe := c.rdb.Pipeline()
	for _, k := range keys {
		pipe.Set(ctx, k, raw, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("employee_id", emp.ID).Msg("directory cache write failed")
	}
}
