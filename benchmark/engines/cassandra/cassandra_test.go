package cassandra

import (
	"os"
	"strings"
	"testing"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/benchmark/engines/enginetest"
	benchErrors "tradebench/errors"
)

func TestStatementsDropFilteringWhenIndexed(t *testing.T) {
	c, err := NewWithHosts([]string{"localhost"}, "trade")
	if err != nil {
		t.Fatal(err)
	}

	unindexed := c.statements()
	c.indexed = true
	indexed := c.statements()

	for _, stmt := range []string{unindexed.countriesByContinent, unindexed.ordersByStatus, unindexed.productsByMerchant} {
		if !strings.HasSuffix(stmt, "allow filtering") {
			t.Errorf("unindexed statement lacks the filtering hint: %q", stmt)
		}
	}
	for _, stmt := range []string{indexed.countriesByContinent, indexed.usersByCountry, indexed.ordersByUser} {
		if strings.Contains(stmt, "allow filtering") {
			t.Errorf("indexed statement still filters: %q", stmt)
		}
	}
	if !strings.Contains(indexed.itemsByOrder, "allow filtering") || !strings.Contains(indexed.itemsByProduct, "allow filtering") {
		t.Error("order item lookups keep the filtering hint in both variants")
	}
	if strings.Contains(indexed.userByID, "allow filtering") || !strings.HasPrefix(indexed.allUsers, "select user_id, full_name from trade.users") {
		t.Error("unexpected key lookups")
	}
}

func TestNewFromConfig(t *testing.T) {
	c, err := New([]byte("cassandra:\n  hosts: [10.0.0.1, 10.0.0.2]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Port != 9042 || c.Keyspace != "trade" || c.ReplicationFactor != 1 || c.Consistency != "ONE" {
		t.Errorf("defaults not applied: %+v", c)
	}

	for _, cfg := range []string{"cassandra:\n  keyspace: x\n", "cassandra:\n  hosts: [h]\n  consistency: SOMETIMES\n", "engine: cassandra\n"} {
		if _, err := New([]byte(cfg)); benchErrors.GetCategory(err) != benchErrors.ErrCategoryConfig {
			t.Errorf("%q: got %v, want CONFIG error", cfg, err)
		}
	}
}

func TestCassandraConformance(t *testing.T) {
	hosts := os.Getenv("TRADEBENCH_CASSANDRA_HOSTS")
	if hosts == "" {
		t.Skip("TRADEBENCH_CASSANDRA_HOSTS not set")
	}
	enginetest.Run(t, func(t *testing.T) engine.Engine {
		c, err := NewWithHosts(strings.Split(hosts, ","), "tradebench_test")
		if err != nil {
			t.Fatal(err)
		}
		return c
	})
}
