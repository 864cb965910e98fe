// Package redis adapta go-redis al puerto de caché de la aplicación. Hoy lo
// consume el rate limiter del API; cualquier otro uso de caché pasa por la
// misma interfaz.
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jhoicas/Almacen-api/pkg/config"
)

// ErrCacheMiss se retorna cuando la clave no existe.
var ErrCacheMiss = redis.Nil

// Client contrato de caché (DIP): la implementación concreta vive aquí, los
// consumidores dependen de la interfaz.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	GetInt(ctx context.Context, key string) (int, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Incr(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
}

// RedisClient implementación concreta sobre go-redis.
type RedisClient struct {
	rdb *redis.Client
}

// NewClient crea el cliente y verifica la conexión con un PING.
func NewClient(cfg config.RedisConfig) (Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisClient{rdb: rdb}, nil
}

// Get recupera el valor asociado a una clave.
func (c *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// GetInt recupera un contador.
func (c *RedisClient) GetInt(ctx context.Context, key string) (int, error) {
	val, err := c.rdb.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

// Set define un valor con expiración.
func (c *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Incr incrementa un contador.
func (c *RedisClient) Incr(ctx context.Context, key string) error {
	return c.rdb.Incr(ctx, key).Err()
}

// Delete elimina una clave.
func (c *RedisClient) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}
