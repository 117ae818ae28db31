package dbutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect is the database/sql driver name of a relational backend.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// ParseDialect accepts the driver names and a few common aliases.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unknown sql dialect %q", s)
}

// Rebind rewrites '?' placeholders into the dialect's style.
func Rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Updates the planner statistics of the given tables
func Analyze(ctx context.Context, db *sql.DB, d Dialect, tables []string) error {
	var err error
	switch d {
	case Postgres:
		_, err = db.ExecContext(ctx, "vacuum analyze")
	case MySQL:
		_, err = db.ExecContext(ctx, "analyze table "+strings.Join(tables, ", "))
	case SQLite:
		_, err = db.ExecContext(ctx, "analyze")
	}
	return err
}

// Log query plans (for debug, PostgreSQL only)
func EnableAutoExplain(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{
		"LOAD 'auto_explain'",
		"SET auto_explain.log_min_duration = 10",
		"SET auto_explain.log_analyze = true",
		"SET auto_explain.log_nested_statements = true",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Returns the database size, in bytes
func DbSize(ctx context.Context, db *sql.DB, d Dialect) (int64, error) {
	var query string
	switch d {
	case Postgres:
		query = "select pg_database_size(current_database())"
	case MySQL:
		query = `
		select coalesce(sum(data_length + index_length), 0)
		from information_schema.tables
		where table_schema = database()
		`
	case SQLite:
		query = "select page_count * page_size from pragma_page_count(), pragma_page_size()"
	default:
		return 0, fmt.Errorf("unknown sql dialect %q", d)
	}

	var s int64
	err := db.QueryRowContext(ctx, query).Scan(&s)
	return s, err
}

// IsDuplicateObject reports whether err says a table or index already exists.
func IsDuplicateObject(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1050: table exists, 1061: duplicate key name
		return myErr.Number == 1050 || myErr.Number == 1061
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// duplicate_table, duplicate_object
		return pqErr.Code == "42P07" || pqErr.Code == "42710"
	}
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// IsMissingObject reports whether err says a table does not exist.
func IsMissingObject(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1146
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// IsConstraintViolation reports whether err is a foreign key, unique or not
// null violation.
func IsConstraintViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1048, 1062, 1216, 1452:
			return true
		}
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
