package keyvalue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/savsgio/gotils/strconv"
)

// badgerStore is an embedded LSM store; ":memory:" keeps it in memory.
type badgerStore struct {
	path string

	db *badger.DB
}

func (s *badgerStore) Open(ctx context.Context) error {
	opts := badger.DefaultOptions(s.path)
	if s.path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

func (s *badgerStore) PutRecord(ctx context.Context, key string, fields Fields) error {
	value, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *badger.Txn) error {
		return tx.Set(strconv.S2B(key), value)
	})
}

func (s *badgerStore) GetRecord(ctx context.Context, key string) (fields Fields, err error) {
	err = s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(strconv.S2B(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		case err != nil:
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &fields)
		})
	})
	return fields, err
}

// scan calls fn with every key under prefix and its value. Both slices are
// only valid during the call.
func (s *badgerStore) scan(prefix string, fn func(key, value []byte) error) error {
	return s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				return fn(item.Key(), v)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *badgerStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.scan(prefix, func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	return keys, err
}

func (s *badgerStore) AddToSet(ctx context.Context, key string, members ...string) error {
	wb := s.db.NewWriteBatch()
	for _, m := range members {
		if err := wb.Set([]byte(memberKey(key, m)), []byte(m)); err != nil {
			wb.Cancel()
			return err
		}
	}
	return wb.Flush()
}

func (s *badgerStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	var members []string
	err := s.scan(setPrefix(key), func(_, value []byte) error {
		members = append(members, string(value))
		return nil
	})
	return members, err
}

func (s *badgerStore) Flush(ctx context.Context) error {
	return s.db.DropAll()
}
