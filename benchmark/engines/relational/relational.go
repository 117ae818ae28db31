// Package relational runs the benchmark on MySQL, PostgreSQL or SQLite
// through database/sql. Foreign keys are declared in the schema, so a load
// that breaks referential integrity fails and is rolled back.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	engine "tradebench/benchmark/engines/abstract"
	dbutils "tradebench/dbUtils"
	benchErrors "tradebench/errors"
)

type Relational struct {
	Dialect      string `yaml:"dialect"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	// Refresh planner statistics after loading and after indexing
	Analyze bool `yaml:"analyze"`
	// Log query plans (PostgreSQL)
	AutoExplain bool `yaml:"autoExplain"`

	dialect      dbutils.Dialect
	db           *sql.DB
	loadedDbSize int64
}

// New reads the "relational" section of the config file.
func New(configData []byte) (*Relational, error) {
	section := struct {
		Relational *Relational `yaml:"relational"`
	}{}
	if err := yaml.Unmarshal(configData, &section); err != nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "relational: "+err.Error())
	}
	if section.Relational == nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "missing relational section")
	}
	r := section.Relational
	return r, r.init()
}

// NewWithDSN builds an engine without a config file.
func NewWithDSN(dialect string, dsn string) (*Relational, error) {
	r := &Relational{Dialect: dialect, DSN: dsn}
	return r, r.init()
}

func (r *Relational) init() error {
	d, err := dbutils.ParseDialect(r.Dialect)
	if err != nil {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, err.Error())
	}
	if r.DSN == "" {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "relational: missing dsn")
	}
	r.dialect = d
	if r.dialect == dbutils.SQLite {
		// a single connection keeps in-memory databases alive and serializes writers
		r.MaxOpenConns = 1
		r.DSN = withForeignKeys(r.DSN)
	} else if r.MaxOpenConns <= 0 {
		r.MaxOpenConns = 4
	}
	return nil
}

// SQLite only enforces foreign keys when asked to
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

func (r *Relational) log() *zerolog.Event {
	return zlog.Info().Str("engine", "relational").Str("dialect", string(r.dialect))
}

func (r *Relational) LoadPolicy() engine.LoadPolicy {
	return engine.FailFast
}

func (r *Relational) Connect(ctx context.Context) error {
	if r.db != nil {
		return nil
	}

	db, err := sql.Open(string(r.dialect), r.DSN)
	if err != nil {
		return benchErrors.NewConnectionError(fmt.Sprintf("open %s", r.dialect), err)
	}
	db.SetMaxOpenConns(r.MaxOpenConns)
	// keep as many idle connections as open ones, so they are not constantly recreated
	db.SetMaxIdleConns(r.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return benchErrors.NewConnectionError(fmt.Sprintf("connect to %s", r.dialect), err)
	}

	if r.AutoExplain && r.dialect == dbutils.Postgres {
		if err := dbutils.EnableAutoExplain(ctx, db); err != nil {
			zlog.Warn().Err(err).Msg("auto_explain unavailable")
		}
	}

	r.db = db
	r.log().Msg("Connected")
	return nil
}

func (r *Relational) Disconnect(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	if err != nil {
		return benchErrors.NewConnectionError("close "+string(r.dialect), err)
	}
	return nil
}

// Returns the engine-specific configurations
func (r *Relational) GetConfigs() map[string]string {
	return map[string]string{
		"dialect":      string(r.dialect),
		"maxOpenConns": strconv.Itoa(r.MaxOpenConns),
		"analyze":      strconv.FormatBool(r.Analyze),
	}
}

// Returns the engine-specific metrics
func (r *Relational) GetMetrics(ctx context.Context) map[string]string {
	metrics := map[string]string{}
	if r.loadedDbSize > 0 {
		metrics["loadedDbSize"] = datasize.ByteSize(r.loadedDbSize).HumanReadable()
	}
	if r.db == nil {
		return metrics
	}
	size, err := dbutils.DbSize(ctx, r.db, r.dialect)
	if err != nil {
		zlog.Warn().Err(err).Msg("Could not read the database size")
		return metrics
	}
	metrics["dbSize"] = datasize.ByteSize(size).HumanReadable()
	metrics["dbSizeBytes"] = strconv.FormatInt(size, 10)
	return metrics
}

func (r *Relational) conn() (*sql.DB, error) {
	if r.db == nil {
		return nil, benchErrors.ErrNotConnected
	}
	return r.db, nil
}
