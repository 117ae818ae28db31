package keyvalue

import (
	"context"
	"strings"

	benchErrors "tradebench/errors"
)

// Fields is one stored record: a flat mapping of column to text, the shape
// of a Redis hash or a Riak map of registers.
type Fields map[string]string

// Store is the part of a key-value database the engine uses. GetRecord
// returns nil when the key does not exist; sets hold record keys.
type Store interface {
	Open(ctx context.Context) error
	Close() error
	PutRecord(ctx context.Context, key string, fields Fields) error
	GetRecord(ctx context.Context, key string) (Fields, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	AddToSet(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	Flush(ctx context.Context) error
}

// Store names accepted in the config.
const (
	StoreRedis  = "redis"
	StoreRiak   = "riak"
	StoreBuntDB = "buntdb"
	StoreBadger = "badger"
)

var Stores = []string{StoreRedis, StoreRiak, StoreBuntDB, StoreBadger}

func newStore(k *KeyValue) (Store, error) {
	switch k.Store {
	case StoreRedis:
		return &redisStore{addr: k.firstAddress(), password: k.Password, db: k.DB}, nil
	case StoreRiak:
		return &riakStore{addresses: k.Addresses, bucket: k.Bucket}, nil
	case StoreBuntDB:
		return &buntStore{path: k.Path}, nil
	case StoreBadger:
		return &badgerStore{path: k.Path}, nil
	}
	return nil, unknownStore(k.Store)
}

func unknownStore(name string) error {
	return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig,
		"keyvalue: unknown store "+name+", expected one of "+strings.Join(Stores, ", "))
}

// Embedded stores have no set type; a set member is a key of its own under
// the set's key.
const memberSeparator = "#"

func memberKey(set, member string) string {
	return set + memberSeparator + member
}

func setPrefix(set string) string {
	return set + memberSeparator
}
