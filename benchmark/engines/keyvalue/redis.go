package keyvalue

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	addr     string
	password string
	db       int

	client *redis.Client
}

func (s *redisStore) Open(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     s.addr,
		Password: s.password,
		DB:       s.db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}
	s.client = client
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func (s *redisStore) PutRecord(ctx context.Context, key string, fields Fields) error {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return s.client.HSet(ctx, key, values).Err()
}

// HGETALL on a missing key returns an empty hash.
func (s *redisStore) GetRecord(ctx context.Context, key string) (Fields, error) {
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil || len(values) == 0 {
		return nil, err
	}
	return values, nil
}

// Keys walks the keyspace with SCAN rather than KEYS so the server is not
// blocked for the whole walk.
func (s *redisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (s *redisStore) AddToSet(ctx context.Context, key string, members ...string) error {
	values := make([]interface{}, len(members))
	for i, m := range members {
		values[i] = m
	}
	return s.client.SAdd(ctx, key, values...).Err()
}

func (s *redisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *redisStore) Flush(ctx context.Context) error {
	return s.client.FlushDB(ctx).Err()
}
