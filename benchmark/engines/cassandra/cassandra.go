// Package cassandra runs the benchmark on Apache Cassandra. The wide-column
// model has no joins, so every query is answered by issuing one statement
// per lookup and combining the rows on the client.
package cassandra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

type Cassandra struct {
	Hosts             []string `yaml:"hosts"`
	Port              int      `yaml:"port"`
	Keyspace          string   `yaml:"keyspace"`
	ReplicationFactor int      `yaml:"replicationFactor"`
	Consistency       string   `yaml:"consistency"`

	session *gocql.Session
	indexed bool
}

func New(configData []byte) (*Cassandra, error) {
	section := struct {
		Cassandra *Cassandra `yaml:"cassandra"`
	}{}
	if err := yaml.Unmarshal(configData, &section); err != nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "cassandra: "+err.Error())
	}
	if section.Cassandra == nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "missing cassandra section")
	}
	c := section.Cassandra
	return c, c.init()
}

// NewWithHosts builds an engine without a config file.
func NewWithHosts(hosts []string, keyspace string) (*Cassandra, error) {
	c := &Cassandra{Hosts: hosts, Keyspace: keyspace}
	return c, c.init()
}

func (c *Cassandra) init() error {
	if len(c.Hosts) == 0 {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "cassandra: missing hosts")
	}
	if c.Port == 0 {
		c.Port = 9042
	}
	if c.Keyspace == "" {
		c.Keyspace = "trade"
	}
	if c.ReplicationFactor <= 0 {
		c.ReplicationFactor = 1
	}
	if c.Consistency == "" {
		c.Consistency = "ONE"
	}
	if _, err := gocql.ParseConsistencyWrapper(c.Consistency); err != nil {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "cassandra: "+err.Error())
	}
	return nil
}

func (c *Cassandra) log() *zerolog.Event {
	return zlog.Info().Str("engine", "cassandra").Str("keyspace", c.Keyspace)
}

func (c *Cassandra) LoadPolicy() engine.LoadPolicy {
	return engine.BestEffort
}

func (c *Cassandra) Connect(ctx context.Context) error {
	if c.session != nil {
		return nil
	}

	cluster := gocql.NewCluster(c.Hosts...)
	cluster.Port = c.Port
	cluster.Consistency, _ = gocql.ParseConsistencyWrapper(c.Consistency)

	session, err := cluster.CreateSession()
	if err != nil {
		return benchErrors.NewConnectionError("connect to cassandra "+strings.Join(c.Hosts, ","), err)
	}
	c.session = session
	c.log().Msg("Connected")
	return nil
}

func (c *Cassandra) Disconnect(ctx context.Context) error {
	if c.session == nil {
		return nil
	}
	c.session.Close()
	c.session = nil
	return nil
}

func (c *Cassandra) GetConfigs() map[string]string {
	return map[string]string{
		"keyspace":          c.Keyspace,
		"replicationFactor": strconv.Itoa(c.ReplicationFactor),
		"consistency":       c.Consistency,
	}
}

func (c *Cassandra) GetMetrics(ctx context.Context) map[string]string {
	return map[string]string{"indexed": strconv.FormatBool(c.indexed)}
}

func (c *Cassandra) conn() (*gocql.Session, error) {
	if c.session == nil {
		return nil, benchErrors.ErrNotConnected
	}
	return c.session, nil
}

func (c *Cassandra) table(e dataset.Entity) string {
	return c.Keyspace + "." + string(e)
}

func (c *Cassandra) ProvisionSchema(ctx context.Context) error {
	s, err := c.conn()
	if err != nil {
		return err
	}

	stmts := []string{fmt.Sprintf(
		"create keyspace if not exists %s with replication = { 'class': 'SimpleStrategy', 'replication_factor': %d }",
		c.Keyspace, c.ReplicationFactor)}
	for _, e := range dataset.Entities {
		stmts = append(stmts, fmt.Sprintf("create table if not exists %s (%s)", c.table(e), tableColumns[e]))
	}

	for _, stmt := range stmts {
		if err := s.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return benchErrors.NewSchemaError("cassandra ddl", err)
		}
	}
	c.log().Msg("Schema ready")
	return nil
}

var tableColumns = map[dataset.Entity]string{
	dataset.Countries:  "country_code bigint primary key, name text, continent_name text",
	dataset.Users:      "user_id bigint primary key, full_name text, email text, gender text, date_of_birth text, country_code bigint",
	dataset.Merchants:  "merchant_id bigint primary key, merchant_name text, user_id bigint, country_code bigint",
	dataset.Orders:     "order_id bigint primary key, user_id bigint, status text, created_at text",
	dataset.Products:   "product_id bigint primary key, merchant_id bigint, name text, price bigint, status text, created_at text",
	dataset.OrderItems: "order_id bigint, product_id bigint, quantity bigint, primary key ((order_id, product_id))",
}

type index struct {
	table  dataset.Entity
	column string
}

func (i index) name() string {
	return fmt.Sprintf("%s_%s_idx", i.table, i.column)
}

// order_items(order_id) is left out: order_id is only part of the partition key
var indexes = []index{
	{dataset.Countries, "continent_name"},
	{dataset.Users, "country_code"},
	{dataset.Orders, "status"},
	{dataset.Orders, "user_id"},
	{dataset.OrderItems, "product_id"},
	{dataset.Products, "merchant_id"},
}

func (c *Cassandra) ProvisionIndexes(ctx context.Context) error {
	s, err := c.conn()
	if err != nil {
		return err
	}

	for _, idx := range indexes {
		stmt := fmt.Sprintf("create index if not exists %s on %s (%s)", idx.name(), c.table(idx.table), idx.column)
		if err := s.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return benchErrors.NewSchemaError("create index "+idx.name(), err)
		}
	}
	if err := c.waitForIndexes(ctx, s); err != nil {
		return benchErrors.NewSchemaError("wait for index build", err)
	}

	c.indexed = true
	c.log().Int("indexes", len(indexes)).Msg("Indexes ready")
	return nil
}

// Index builds run in the background; queries fail until they finish
func (c *Cassandra) waitForIndexes(ctx context.Context, s *gocql.Session) error {
	for {
		built := 0
		iter := s.Query(`select index_name from system."IndexInfo" where table_name = ?`, c.Keyspace).WithContext(ctx).Iter()
		var name string
		for iter.Scan(&name) {
			built++
		}
		if err := iter.Close(); err != nil {
			return err
		}
		if built >= len(indexes) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Reset drops the keyspace with its tables and indexes.
func (c *Cassandra) Reset(ctx context.Context) error {
	s, err := c.conn()
	if err != nil {
		return err
	}
	if err := s.Query("drop keyspace if exists " + c.Keyspace).WithContext(ctx).Exec(); err != nil {
		return benchErrors.NewSchemaError("drop keyspace "+c.Keyspace, err)
	}
	c.indexed = false
	return nil
}

// LoadDataset writes every row, dangling references included: nothing in
// the schema prevents them, so they are only reported.
func (c *Cassandra) LoadDataset(ctx context.Context, ds *dataset.Dataset) error {
	s, err := c.conn()
	if err != nil {
		return err
	}

	for _, v := range dataset.CheckReferences(ds) {
		zlog.Warn().Str("engine", "cassandra").Str("violation", v.String()).Msg("Dangling reference")
	}

	tables := ds.Tables()
	for _, e := range dataset.Entities {
		cols := e.Columns()
		stmt := fmt.Sprintf("insert into %s (%s) values (%s)", c.table(e), strings.Join(cols, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
		for i, rec := range tables[e] {
			if err := s.Query(stmt, rec.Values(e)...).WithContext(ctx).Exec(); err != nil {
				return benchErrors.NewLoadError(benchErrors.CodeWriteFailed,
					fmt.Sprintf("insert into %s row %d", e, i+1), err)
			}
		}
		c.log().Str("table", string(e)).Int("rows", len(tables[e])).Msg("Loaded")
	}
	return nil
}

func isMissingObject(err error) bool {
	var reqErr gocql.RequestError
	if !errors.As(err, &reqErr) || reqErr.Code() != gocql.ErrCodeInvalid {
		return false
	}
	msg := strings.ToLower(reqErr.Message())
	return strings.Contains(msg, "unconfigured table") || strings.Contains(msg, "does not exist")
}
