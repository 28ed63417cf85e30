package windowstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisWindowPrefix string = "window/"

// RedisWindowStore keeps window counters in Redis so multiple API processes
// can share one budget. Fixed-window semantics match the memory store: INCR
// counts the call, with the key expiring when the window rolls over.
type RedisWindowStore struct {
	Client *redis.Client
}

func NewRedisWindowStore(redisURL string) (*RedisWindowStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rws := RedisWindowStore{
		Client: rdb,
	}
	return &rws, nil
}

func (s *RedisWindowStore) Allow(ctx context.Context, agent, kind string, max int, window time.Duration) (bool, error) {
	if max < 1 {
		return false, nil
	}
	key := redisWindowPrefix + windowKey(agent, kind)

	count, err := s.Client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		// first call of the window owns setting the expiry
		if err := s.Client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	if count > int64(max) {
		return false, nil
	}
	return true, nil
}
