package storage

import (
	"fmt"

	"github.com/annel0/stackattack/internal/config"
)

// Open создаёт репозиторий инвентарей по настройкам storage.backend
func Open(cfg *config.StorageConfig) (InventoryRepo, error) {
	switch backend := cfg.GetBackend(); backend {
	case "memory":
		return NewMemoryInventoryRepo(), nil
	case "badger":
		return NewBadgerInventoryRepo(cfg.GetDataDir())
	case "redis":
		return NewRedisInventoryRepo(&RedisOptions{
			Addr:      cfg.Redis.GetAddr(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.GetKeyPrefix(),
		})
	case "maria", "mysql":
		return NewMariaInventoryRepo(cfg.Maria.GetDSN())
	default:
		return nil, fmt.Errorf("неизвестный backend хранилища: %q", backend)
	}
}

// OpenBlocks создаёт репозиторий расстановки блоков для того же backend
func OpenBlocks(cfg *config.StorageConfig) (BlockRepo, error) {
	switch backend := cfg.GetBackend(); backend {
	case "memory":
		return NewMemoryBlockRepo(), nil
	case "badger":
		return NewBadgerBlockRepo(cfg.GetDataDir())
	case "redis":
		return NewRedisBlockRepo(&RedisOptions{
			Addr:      cfg.Redis.GetAddr(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.GetKeyPrefix(),
		})
	case "maria", "mysql":
		return NewMariaBlockRepo(cfg.Maria.GetDSN())
	default:
		return nil, fmt.Errorf("неизвестный backend хранилища: %q", backend)
	}
}
