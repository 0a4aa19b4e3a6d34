// Package redisstore keeps the subscriber set in a Redis SET.
package redisstore

import (
	"context"
	"fmt"
	"strconv"

	"dogenews/internal/subscriber"

	"github.com/go-redis/redis/v8"
	"github.com/samber/lo"
)

type Store struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client, key string) *Store {
	return &Store{client: client, key: key}
}

// NewClient connects to addr and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *Store) Load(ctx context.Context) (*subscriber.Set, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, subscriber.Wrap("redis smembers "+s.key, err)
	}

	set := subscriber.NewSet()
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, subscriber.Wrap("redis member "+m, err)
		}
		set.Add(id)
	}
	return set, nil
}

// Save replaces the key with DEL + SADD inside MULTI/EXEC.
func (s *Store) Save(ctx context.Context, set *subscriber.Set) error {
	members := lo.Map(set.IDs(), func(id int64, _ int) interface{} {
		return strconv.FormatInt(id, 10)
	})

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(members) > 0 {
			pipe.SAdd(ctx, s.key, members...)
		}
		return nil
	})
	if err != nil {
		return subscriber.Wrap("redis replace "+s.key, err)
	}
	return nil
}
