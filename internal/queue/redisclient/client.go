package redisclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/geocoder89/campuserp/internal/jobs"
	"github.com/geocoder89/campuserp/internal/queue"
	"github.com/redis/go-redis/v9"
)

const (
	scheduledKey = "campuserp:jobs:scheduled"
	deadKey      = "campuserp:jobs:dead"
)

type Client struct {
	redisdb *redis.Client
	now     func() time.Time
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb, now: time.Now}
}

// Ping checks redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Jobs live in a sorted set scored by RunAt (unix millis).
func (c *Client) Enqueue(ctx context.Context, j jobs.Job) error {
	b, err := jobs.Marshal(j)
	if err != nil {
		return err
	}

	return c.redisdb.ZAdd(ctx, scheduledKey, redis.Z{
		Score:  float64(j.RunAt.UnixMilli()),
		Member: b,
	}).Err()
}

// Dequeue claims with ZREM; whoever removes the member owns the job.
func (c *Client) Dequeue(ctx context.Context) (jobs.Job, error) {
	max := strconv.FormatInt(c.now().UnixMilli(), 10)

	for attempt := 0; attempt < 3; attempt++ {
		members, err := c.redisdb.ZRangeByScore(ctx, scheduledKey, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   max,
			Count: 1,
		}).Result()
		if err != nil {
			return jobs.Job{}, fmt.Errorf("redis zrangebyscore: %w", err)
		}
		if len(members) == 0 {
			return jobs.Job{}, queue.ErrEmpty
		}

		removed, err := c.redisdb.ZRem(ctx, scheduledKey, members[0]).Result()
		if err != nil {
			return jobs.Job{}, fmt.Errorf("redis zrem: %w", err)
		}
		if removed == 0 {
			// another worker won the race
			continue
		}

		j, err := jobs.Unmarshal([]byte(members[0]))
		if err != nil {
			_ = c.redisdb.LPush(ctx, deadKey, members[0]).Err()
			return jobs.Job{}, err
		}
		return j, nil
	}

	return jobs.Job{}, queue.ErrEmpty
}

func (c *Client) DeadLetter(ctx context.Context, j jobs.Job) error {
	b, err := jobs.Marshal(j)
	if err != nil {
		return err
	}
	return c.redisdb.LPush(ctx, deadKey, b).Err()
}

func (c *Client) Len(ctx context.Context) (int, error) {
	n, err := c.redisdb.ZCard(ctx, scheduledKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return int(n), nil
}
