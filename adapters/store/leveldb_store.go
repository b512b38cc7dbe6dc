package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// LevelDBKV persists key-value pairs in a LevelDB database on local disk.
// Every write is synced before returning.
type LevelDBKV struct {
	db *leveldb.DB
}

// OpenLevelDBKV opens (or creates) the database in dir.
func OpenLevelDBKV(dir string) (*LevelDBKV, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", dir, err)
	}
	return &LevelDBKV{db: db}, nil
}

var _ ports.KeyValueStore = (*LevelDBKV)(nil)

var syncWrites = &opt.WriteOptions{Sync: true}

func (s *LevelDBKV) Get(ctx context.Context, key string) (string, error) {
	value, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", core.ErrStoreOperation, err)
	}
	return string(value), nil
}

func (s *LevelDBKV) Set(ctx context.Context, key, value string) error {
	if err := s.db.Put([]byte(key), []byte(value), syncWrites); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperation, err)
	}
	return nil
}

func (s *LevelDBKV) Delete(ctx context.Context, key string) error {
	if err := s.db.Delete([]byte(key), syncWrites); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperation, err)
	}
	return nil
}

// Close releases the database lock.
func (s *LevelDBKV) Close() error {
	return s.db.Close()
}
