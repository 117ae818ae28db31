// Package keyvalue runs the benchmark on key-value stores. Every row is a
// record under "<entity>:<id>"; secondary indexes are sets of record keys
// under "<entity>_index:<field>:<value>", built by ProvisionIndexes. Queries
// scan and join on the client until those sets exist.
package keyvalue

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
	"tradebench/util"
)

type KeyValue struct {
	Store     string   `yaml:"store"`
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	Bucket    string   `yaml:"bucket"`
	Path      string   `yaml:"path"`

	store   Store
	indexed bool
}

func New(configData []byte) (*KeyValue, error) {
	section := struct {
		KeyValue *KeyValue `yaml:"keyvalue"`
	}{}
	if err := yaml.Unmarshal(configData, &section); err != nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "keyvalue: "+err.Error())
	}
	if section.KeyValue == nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "missing keyvalue section")
	}
	k := section.KeyValue
	return k, k.init()
}

// NewWithStore builds an engine without a config file. target is the
// server address for redis and riak, and the file path for the embedded
// stores.
func NewWithStore(store, target string) (*KeyValue, error) {
	k := &KeyValue{Store: store}
	switch store {
	case StoreRedis, StoreRiak:
		k.Addresses = []string{target}
	default:
		k.Path = target
	}
	return k, k.init()
}

func (k *KeyValue) init() error {
	if !slices.Contains(Stores, k.Store) {
		return unknownStore(k.Store)
	}
	switch k.Store {
	case StoreRedis, StoreRiak:
		if len(k.Addresses) == 0 {
			return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "keyvalue: "+k.Store+" needs addresses")
		}
	default:
		if k.Path == "" {
			k.Path = ":memory:"
		}
	}
	if k.Bucket == "" {
		k.Bucket = "trade"
	}
	return nil
}

func (k *KeyValue) firstAddress() string {
	if len(k.Addresses) == 0 {
		return ""
	}
	return k.Addresses[0]
}

func (k *KeyValue) log() *zerolog.Event {
	return zlog.Info().Str("engine", "keyvalue").Str("store", k.Store)
}

func (k *KeyValue) LoadPolicy() engine.LoadPolicy {
	return engine.BestEffort
}

func (k *KeyValue) Connect(ctx context.Context) error {
	if k.store != nil {
		return nil
	}

	store, err := newStore(k)
	if err != nil {
		return err
	}
	if err := store.Open(ctx); err != nil {
		return benchErrors.NewConnectionError("open "+k.Store+" store", err)
	}
	k.store = store
	k.log().Msg("Connected")
	return nil
}

func (k *KeyValue) Disconnect(ctx context.Context) error {
	if k.store == nil {
		return nil
	}
	err := k.store.Close()
	k.store = nil
	if err != nil {
		return benchErrors.NewConnectionError("close "+k.Store+" store", err)
	}
	return nil
}

func (k *KeyValue) GetConfigs() map[string]string {
	configs := map[string]string{"store": k.Store}
	switch k.Store {
	case StoreRedis:
		configs["db"] = strconv.Itoa(k.DB)
	case StoreRiak:
		configs["bucket"] = k.Bucket
	default:
		configs["path"] = k.Path
	}
	return configs
}

func (k *KeyValue) GetMetrics(ctx context.Context) map[string]string {
	metrics := map[string]string{"indexed": strconv.FormatBool(k.indexed)}
	if k.store == nil {
		return metrics
	}
	records := 0
	for _, e := range dataset.Entities {
		keys, err := k.store.Keys(ctx, prefix(e))
		if err != nil {
			return metrics
		}
		records += len(keys)
	}
	metrics["records"] = strconv.Itoa(records)
	return metrics
}

func (k *KeyValue) conn() (Store, error) {
	if k.store == nil {
		return nil, benchErrors.ErrNotConnected
	}
	return k.store, nil
}

// ProvisionSchema has nothing to create: stores are schemaless.
func (k *KeyValue) ProvisionSchema(ctx context.Context) error {
	if _, err := k.conn(); err != nil {
		return err
	}
	k.log().Msg("Schema ready")
	return nil
}

func prefix(e dataset.Entity) string {
	return string(e) + ":"
}

func entityKey(e dataset.Entity, id int64) string {
	return prefix(e) + strconv.FormatInt(id, 10)
}

func recordKey(e dataset.Entity, rec dataset.Record) string {
	if e == dataset.OrderItems {
		return prefix(e) + util.Text(rec["order_id"]) + ":" + util.Text(rec["product_id"])
	}
	return prefix(e) + util.Text(rec[e.Columns()[0]])
}

// The value is escaped so it cannot hold the member separator or a glob
// character.
func indexKey(e dataset.Entity, field, value string) string {
	return fmt.Sprintf("%s_index:%s:%s", e, field, url.QueryEscape(value))
}

func (k *KeyValue) LoadDataset(ctx context.Context, ds *dataset.Dataset) error {
	store, err := k.conn()
	if err != nil {
		return err
	}

	for _, v := range dataset.CheckReferences(ds) {
		zlog.Warn().Str("engine", "keyvalue").Str("violation", v.String()).Msg("Dangling reference")
	}

	tables := ds.Tables()
	for _, e := range dataset.Entities {
		for _, rec := range tables[e] {
			fields := make(Fields, len(rec))
			for col, v := range rec {
				fields[col] = util.Text(v)
			}
			if err := store.PutRecord(ctx, recordKey(e, rec), fields); err != nil {
				return benchErrors.NewLoadError(benchErrors.CodeWriteFailed, "put "+recordKey(e, rec), err)
			}
		}
		k.log().Str("entity", string(e)).Int("records", len(tables[e])).Msg("Loaded")
	}
	return nil
}

type index struct {
	entity dataset.Entity
	field  string
}

var indexes = []index{
	{dataset.Countries, "continent_name"},
	{dataset.Users, "country_code"},
	{dataset.Products, "merchant_id"},
	{dataset.Orders, "status"},
	{dataset.Orders, "user_id"},
	{dataset.OrderItems, "order_id"},
	{dataset.OrderItems, "product_id"},
}

func isIndexed(e dataset.Entity, field string) bool {
	return slices.Contains(indexes, index{e, field})
}

// ProvisionIndexes scans each indexed entity and adds every record key to
// the set of its field value. Sets ignore repeated members.
func (k *KeyValue) ProvisionIndexes(ctx context.Context) error {
	store, err := k.conn()
	if err != nil {
		return err
	}

	for _, idx := range indexes {
		keys, err := store.Keys(ctx, prefix(idx.entity))
		if err != nil {
			return benchErrors.NewSchemaError("scan "+string(idx.entity), err)
		}

		members := map[string][]string{}
		for _, key := range keys {
			fields, err := store.GetRecord(ctx, key)
			if err != nil {
				return benchErrors.NewSchemaError("read "+key, err)
			}
			if fields == nil {
				continue
			}
			value := fields[idx.field]
			members[value] = append(members[value], key)
		}

		for value, keys := range members {
			if err := store.AddToSet(ctx, indexKey(idx.entity, idx.field, value), keys...); err != nil {
				return benchErrors.NewSchemaError("build index "+indexKey(idx.entity, idx.field, value), err)
			}
		}
		k.log().Str("entity", string(idx.entity)).Str("field", idx.field).Int("values", len(members)).Msg("Index built")
	}

	k.indexed = true
	return nil
}

// Reset removes every key from the store.
func (k *KeyValue) Reset(ctx context.Context) error {
	store, err := k.conn()
	if err != nil {
		return err
	}
	if err := store.Flush(ctx); err != nil {
		return benchErrors.NewSchemaError("flush "+k.Store, err)
	}
	k.indexed = false
	return nil
}
