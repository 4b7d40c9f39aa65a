package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/stackattack/internal/logging"
	"github.com/annel0/stackattack/internal/vec"
	"github.com/dgraph-io/badger/v3"
)

const badgerBlockPrefix = "block:"

// BadgerBlockRepo хранит расстановку блоков в отдельной базе BadgerDB
type BadgerBlockRepo struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerBlockRepo открывает (или создаёт) базу в dataPath/blocks
func NewBadgerBlockRepo(dataPath string) (*BadgerBlockRepo, error) {
	dbPath := filepath.Join(dataPath, "blocks")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logging.GetStorageLogger().Info("BadgerDB расстановки блоков открыта: %s", dbPath)
	return &BadgerBlockRepo{db: db, dbPath: dbPath, isReady: true}, nil
}

func blockKey(pos vec.Vec3) []byte {
	return []byte(badgerBlockPrefix + pos.Key())
}

// Save записывает блок
func (r *BadgerBlockRepo) Save(ctx context.Context, p Placement) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	data, err := encodePlacement(p)
	if err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return fmt.Errorf("хранилище блоков закрыто")
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blockKey(p.Position), data)
	})
}

// Delete удаляет блок
func (r *BadgerBlockRepo) Delete(ctx context.Context, pos vec.Vec3) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return fmt.Errorf("хранилище блоков закрыто")
	}

	return r.db.Update(func(txn *badger.Txn) error {
		key := blockKey(pos)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrBlockNotFound, pos)
			}
			return err
		}
		return txn.Delete(key)
	})
}

// LoadAll перебирает все записи с префиксом block:
func (r *BadgerBlockRepo) LoadAll(ctx context.Context) ([]Placement, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if !r.isReady {
		return nil, fmt.Errorf("хранилище блоков закрыто")
	}

	var out []Placement
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerBlockPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				p, err := decodePlacement(val)
				if err != nil {
					return err
				}
				out = append(out, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения блоков из BadgerDB: %w", err)
	}

	sortPlacements(out)
	return out, nil
}

// Close закрывает базу; повторный вызов безопасен
func (r *BadgerBlockRepo) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}
	r.isReady = false
	return r.db.Close()
}
