// Package rediskv backs the chat store with redis strings.
package rediskv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces chat keys away from anything else on the instance.
const keyPrefix = "rgsai:"

type KV struct {
	client *redis.Client
}

func New(addr, password string, db int) *KV {
	return &KV{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func NewWithClient(client *redis.Client) *KV {
	return &KV{client: client}
}

func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := k.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (k *KV) Set(ctx context.Context, key, value string) error {
	return k.client.Set(ctx, keyPrefix+key, value, 0).Err()
}

func (k *KV) Delete(ctx context.Context, key string) error {
	return k.client.Del(ctx, keyPrefix+key).Err()
}

func (k *KV) Close() error { return k.client.Close() }
