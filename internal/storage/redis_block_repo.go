package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/annel0/stackattack/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisBlockRepo хранит расстановку блоков в одном хеше Redis:
// поле - ключ позиции, значение - ID блока
type RedisBlockRepo struct {
	client *redis.Client
	key    string
}

// NewRedisBlockRepo подключается к Redis и проверяет соединение
func NewRedisBlockRepo(opts *RedisOptions) (*RedisBlockRepo, error) {
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

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	return &RedisBlockRepo{client: client, key: opts.KeyPrefix + "blocks"}, nil
}

// Save записывает блок
func (r *RedisBlockRepo) Save(ctx context.Context, p Placement) error {
	if err := r.client.HSet(ctx, r.key, p.Position.Key(), p.BlockID).Err(); err != nil {
		return fmt.Errorf("ошибка записи блока в Redis: %w", err)
	}
	return nil
}

// Delete удаляет блок
func (r *RedisBlockRepo) Delete(ctx context.Context, pos vec.Vec3) error {
	n, err := r.client.HDel(ctx, r.key, pos.Key()).Result()
	if err != nil {
		return fmt.Errorf("ошибка удаления блока из Redis: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, pos)
	}
	return nil
}

// LoadAll читает весь хеш расстановки
func (r *RedisBlockRepo) LoadAll(ctx context.Context) ([]Placement, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения блоков из Redis: %w", err)
	}

	out := make([]Placement, 0, len(fields))
	for field, value := range fields {
		pos, err := vec.ParseVec3(field)
		if err != nil {
			return nil, err
		}
		id, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("неверный ID блока %q в %s: %w", value, field, err)
		}
		out = append(out, Placement{Position: pos, BlockID: uint16(id)})
	}

	sortPlacements(out)
	return out, nil
}

// Close закрывает соединение с Redis
func (r *RedisBlockRepo) Close() error {
	return r.client.Close()
}
