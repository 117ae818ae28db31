package keyvalue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/savsgio/gotils/strconv"
	"github.com/tidwall/buntdb"
)

// buntStore is an embedded store; ":memory:" keeps it in memory.
type buntStore struct {
	path string

	db *buntdb.DB
}

func (s *buntStore) Open(ctx context.Context) error {
	db, err := buntdb.Open(s.path)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *buntStore) Close() error {
	return s.db.Close()
}

func (s *buntStore) PutRecord(ctx context.Context, key string, fields Fields) error {
	value, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, strconv.B2S(value), nil)
		return err
	})
}

func (s *buntStore) GetRecord(ctx context.Context, key string) (fields Fields, err error) {
	err = s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		switch {
		case errors.Is(err, buntdb.ErrNotFound):
			return nil
		case err != nil:
			return err
		}
		return json.Unmarshal(strconv.S2B(v), &fields)
	})
	return fields, err
}

// ascend calls fn with every key under prefix and its value. Keys are
// compared literally, never as glob patterns.
func (s *buntStore) ascend(prefix string, fn func(key, value string)) error {
	return s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendGreaterOrEqual("", prefix, func(key, value string) bool {
			if !strings.HasPrefix(key, prefix) {
				return false
			}
			fn(key, value)
			return true
		})
	})
}

func (s *buntStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.ascend(prefix, func(key, _ string) {
		keys = append(keys, key)
	})
	return keys, err
}

func (s *buntStore) AddToSet(ctx context.Context, key string, members ...string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		for _, m := range members {
			if _, _, err := tx.Set(memberKey(key, m), m, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *buntStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	var members []string
	err := s.ascend(setPrefix(key), func(_, member string) {
		members = append(members, member)
	})
	return members, err
}

func (s *buntStore) Flush(ctx context.Context) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		return tx.DeleteAll()
	})
}
