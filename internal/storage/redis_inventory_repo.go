package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/stackattack/internal/inventory"
	"github.com/go-redis/redis/v8"
)

// RedisInventoryRepo хранит снимки инвентарей в Redis.
// Подходит для общих сундуков нескольких серверных процессов.
type RedisInventoryRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisOptions содержит настройки подключения к Redis
type RedisOptions struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей (0 - без ограничения)
}

// DefaultRedisOptions возвращает настройки по умолчанию
func DefaultRedisOptions() *RedisOptions {
	return &RedisOptions{
		Addr:      "localhost:6379",
		KeyPrefix: "stackattack:inv:",
	}
}

// NewRedisInventoryRepo создаёт Redis репозиторий и проверяет подключение
func NewRedisInventoryRepo(opts *RedisOptions) (*RedisInventoryRepo, error) {
	if opts == nil {
		opts = DefaultRedisOptions()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	return &RedisInventoryRepo{
		client:    client,
		keyPrefix: opts.KeyPrefix,
		ttl:       opts.TTL,
	}, nil
}

func (r *RedisInventoryRepo) key(id string) string {
	return r.keyPrefix + id
}

// Save сохраняет снимок
func (r *RedisInventoryRepo) Save(ctx context.Context, snap *inventory.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(snap.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}
	return nil
}

// Load загружает снимок
func (r *RedisInventoryRepo) Load(ctx context.Context, id string) (*inventory.Snapshot, bool, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Delete удаляет снимок
func (r *RedisInventoryRepo) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("ошибка удаления из Redis: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// BatchSave записывает снимки одной транзакцией MULTI/EXEC
func (r *RedisInventoryRepo) BatchSave(ctx context.Context, snaps []*inventory.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	encoded := make(map[string][]byte, len(snaps))
	for _, snap := range snaps {
		data, err := encodeSnapshot(snap)
		if err != nil {
			return err
		}
		encoded[r.key(snap.ID)] = data
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range encoded {
			pipe.Set(ctx, key, data, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка пакетной записи в Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisInventoryRepo) Close() error {
	return r.client.Close()
}
