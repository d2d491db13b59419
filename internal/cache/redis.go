package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/discope/config"
	"github.com/Domenick1991/discope/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// acquireScript sets every day key of a range or none of them.
var acquireScript = redis.NewScript(`
	for i = 1, #KEYS do
		if redis.call('EXISTS', KEYS[i]) == 1 then
			return 0
		end
	end
	for i = 1, #KEYS do
		redis.call('SET', KEYS[i], ARGV[1], 'PX', ARGV[2])
	end
	return 1
`)

// releaseScript only deletes keys still holding the caller's token.
var releaseScript = redis.NewScript(`
	local released = 0
	for i = 1, #KEYS do
		if redis.call('GET', KEYS[i]) == ARGV[1] then
			redis.call('DEL', KEYS[i])
			released = released + 1
		end
	end
	return released
`)

type RedisCache struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		tokens: make(map[string]string),
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error) {
	data, err := c.client.Get(ctx, rentalUnitsKey(centerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var units []domain.RentalUnit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, err
	}
	return units, nil
}

func (c *RedisCache) SetRentalUnits(ctx context.Context, centerID int64, units []domain.RentalUnit, ttl time.Duration) error {
	if units == nil {
		units = []domain.RentalUnit{}
	}
	payload, err := json.Marshal(units)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rentalUnitsKey(centerID), payload, ttl).Err()
}

func (c *RedisCache) InvalidateRentalUnits(ctx context.Context, centerID int64) error {
	return c.client.Del(ctx, rentalUnitsKey(centerID)).Err()
}

// AcquireAssignmentLock locks every day of [from, to] at a center. It fails without
// waiting when any of those days is already locked.
func (c *RedisCache) AcquireAssignmentLock(ctx context.Context, centerID int64, from, to time.Time, ttl time.Duration) (bool, error) {
	keys := assignmentLockKeys(centerID, from, to)
	token := uuid.NewString()

	ok, err := acquireScript.Run(ctx, c.client, keys, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("acquire assignment lock: %w", err)
	}
	if ok != 1 {
		return false, nil
	}

	c.mu.Lock()
	c.tokens[rangeKey(centerID, from, to)] = token
	c.mu.Unlock()
	return true, nil
}

func (c *RedisCache) ReleaseAssignmentLock(ctx context.Context, centerID int64, from, to time.Time) error {
	id := rangeKey(centerID, from, to)
	c.mu.Lock()
	token, ok := c.tokens[id]
	delete(c.tokens, id)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return releaseScript.Run(ctx, c.client, assignmentLockKeys(centerID, from, to), token).Err()
}

// ClaimTask marks a task key as pending. Only the first claim within ttl succeeds so that
// repeated requests for the same key collapse into one task.
func (c *RedisCache) ClaimTask(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, taskKey(key), "pending", ttl).Result()
}

func (c *RedisCache) ReleaseTask(ctx context.Context, key string) error {
	return c.client.Del(ctx, taskKey(key)).Err()
}

func rentalUnitsKey(centerID int64) string {
	return fmt.Sprintf("cache:center:%d:rental_units", centerID)
}

func taskKey(key string) string {
	return "task:" + key
}

func rangeKey(centerID int64, from, to time.Time) string {
	return fmt.Sprintf("%d:%d:%d", centerID, from.Unix(), to.Unix())
}

// assignmentLockKeys returns one key per calendar day touched by [from, to].
func assignmentLockKeys(centerID int64, from, to time.Time) []string {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	var keys []string
	for !day.After(last) {
		keys = append(keys, fmt.Sprintf("lock:assign:center:%d:day:%s", centerID, day.Format("2006-01-02")))
		day = day.AddDate(0, 0, 1)
	}
	return keys
}
