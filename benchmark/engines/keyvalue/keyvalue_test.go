package keyvalue

import (
	"context"
	"os"
	"sort"
	"testing"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/benchmark/engines/enginetest"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

func factory(store, target string) enginetest.Factory {
	return func(t *testing.T) engine.Engine {
		k, err := NewWithStore(store, target)
		if err != nil {
			t.Fatal(err)
		}
		return k
	}
}

func TestBuntDBConformance(t *testing.T) {
	enginetest.Run(t, factory(StoreBuntDB, ":memory:"))
}

func TestBadgerConformance(t *testing.T) {
	enginetest.Run(t, factory(StoreBadger, ":memory:"))
}

func TestRedisConformance(t *testing.T) {
	addr := os.Getenv("TRADEBENCH_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRADEBENCH_REDIS_ADDR not set")
	}
	enginetest.Run(t, factory(StoreRedis, addr))
}

func TestRiakConformance(t *testing.T) {
	addr := os.Getenv("TRADEBENCH_RIAK_ADDR")
	if addr == "" {
		t.Skip("TRADEBENCH_RIAK_ADDR not set")
	}
	enginetest.Run(t, factory(StoreRiak, addr))
}

func TestNewFromConfig(t *testing.T) {
	k, err := New([]byte("keyvalue:\n  store: badger\n"))
	if err != nil {
		t.Fatal(err)
	}
	if k.Path != ":memory:" || k.Bucket != "trade" {
		t.Errorf("defaults not applied: %+v", k)
	}

	for _, cfg := range []string{"engine: keyvalue\n", "keyvalue:\n  store: etcd\n", "keyvalue:\n  store: redis\n"} {
		if _, err := New([]byte(cfg)); benchErrors.GetCategory(err) != benchErrors.ErrCategoryConfig {
			t.Errorf("%q: got %v, want CONFIG error", cfg, err)
		}
	}
}

func TestRecordKeys(t *testing.T) {
	tables := dataset.Fixture().Tables()
	if got := recordKey(dataset.Users, tables[dataset.Users][0]); got != "users:1" {
		t.Errorf("user key = %q", got)
	}
	if got := recordKey(dataset.OrderItems, tables[dataset.OrderItems][0]); got != "order_items:1:1" {
		t.Errorf("order item key = %q", got)
	}
	if got := indexKey(dataset.Orders, "status", "Shipped"); got != "orders_index:status:Shipped" {
		t.Errorf("index key = %q", got)
	}
	if got := indexKey(dataset.Countries, "continent_name", "North America#East*"); got != "countries_index:continent_name:North+America%23East%2A" {
		t.Errorf("escaped index key = %q", got)
	}
}

// Index sets must hold the keys of exactly the records with that value.
func TestIndexSets(t *testing.T) {
	for _, store := range []string{StoreBuntDB, StoreBadger} {
		t.Run(store, func(t *testing.T) {
			k, _ := NewWithStore(store, ":memory:")
			ds := dataset.Fixture()
			enginetest.Load(t, k, ds)
			ctx := context.Background()
			if err := k.ProvisionIndexes(ctx); err != nil {
				t.Fatal(err)
			}

			var want []string
			for _, o := range ds.Orders {
				if o.Status == dataset.StatusShipped {
					want = append(want, entityKey(dataset.Orders, o.OrderID))
				}
			}
			got, err := k.store.SetMembers(ctx, indexKey(dataset.Orders, "status", dataset.StatusShipped))
			if err != nil {
				t.Fatal(err)
			}
			sort.Strings(got)
			sort.Strings(want)
			if len(got) != len(want) {
				t.Fatalf("got %v, want %v", got, want)
			}
			for i := range got {
				if got[i] != want[i] {
					t.Fatalf("got %v, want %v", got, want)
				}
			}

			keys, err := k.store.Keys(ctx, prefix(dataset.Orders))
			if err != nil {
				t.Fatal(err)
			}
			if len(keys) != len(ds.Orders) {
				t.Errorf("index sets leak into the record scan: %v", keys)
			}

			if err := k.Reset(ctx); err != nil {
				t.Fatal(err)
			}
			if metrics := k.GetMetrics(ctx); metrics["records"] != "0" || metrics["indexed"] != "false" {
				t.Errorf("metrics after reset = %v", metrics)
			}
		})
	}
}
