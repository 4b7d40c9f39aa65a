package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/logging"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

const badgerKeyPrefix = "inv:"

// BadgerInventoryRepo хранит снимки инвентарей в BadgerDB.
// Значения - JSON, сжатый zstd.
type BadgerInventoryRepo struct {
	db      *badger.DB
	dbPath  string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerInventoryRepo открывает (или создаёт) базу в dataPath/inventories
func NewBadgerInventoryRepo(dataPath string) (*BadgerInventoryRepo, error) {
	dbPath := filepath.Join(dataPath, "inventories")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	logging.GetStorageLogger().Info("BadgerDB инвентарей открыта: %s", dbPath)
	return &BadgerInventoryRepo{
		db:      db,
		dbPath:  dbPath,
		encoder: encoder,
		decoder: decoder,
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (r *BadgerInventoryRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}

	r.isReady = false
	r.decoder.Close()
	_ = r.encoder.Close()
	return r.db.Close()
}

func (r *BadgerInventoryRepo) encode(snap *inventory.Snapshot) ([]byte, error) {
	raw, err := encodeSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return r.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Save сохраняет снимок
func (r *BadgerInventoryRepo) Save(ctx context.Context, snap *inventory.Snapshot) error {
	return r.BatchSave(ctx, []*inventory.Snapshot{snap})
}

// BatchSave сохраняет несколько снимков в одной транзакции
func (r *BadgerInventoryRepo) BatchSave(ctx context.Context, snaps []*inventory.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	entries := make(map[string][]byte, len(snaps))
	for _, snap := range snaps {
		data, err := r.encode(snap)
		if err != nil {
			return err
		}
		entries[badgerKeyPrefix+snap.ID] = data
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		for key, data := range entries {
			if err := txn.Set([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Load загружает снимок
func (r *BadgerInventoryRepo) Load(ctx context.Context, id string) (*inventory.Snapshot, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return nil, false, fmt.Errorf("хранилище не готово")
	}

	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	raw, err := r.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка распаковки снимка %s: %w", id, err)
	}

	snap, err := decodeSnapshot(raw)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Delete удаляет снимок
func (r *BadgerInventoryRepo) Delete(ctx context.Context, id string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	key := []byte(badgerKeyPrefix + id)
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return err
		}
		return txn.Delete(key)
	})
}

// IDs возвращает идентификаторы всех сохранённых инвентарей с указанным префиксом
func (r *BadgerInventoryRepo) IDs(prefix string) ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var ids []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerKeyPrefix + prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, key[len(badgerKeyPrefix):])
		}
		return nil
	})
	return ids, err
}
