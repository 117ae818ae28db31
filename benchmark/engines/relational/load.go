package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"tradebench/dataset"
	dbutils "tradebench/dbUtils"
	benchErrors "tradebench/errors"
)

func insertStatement(d dbutils.Dialect, e dataset.Entity) string {
	cols := e.Columns()
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return dbutils.Rebind(d, fmt.Sprintf("insert into %s (%s) values (%s)", e, strings.Join(cols, ", "), marks))
}

// LoadDataset inserts the six tables in foreign key order inside a single
// transaction. Any failure rolls the whole load back.
func (r *Relational) LoadDataset(ctx context.Context, ds *dataset.Dataset) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return benchErrors.NewLoadError(benchErrors.CodeWriteFailed, "begin load transaction", err)
	}

	tables := ds.Tables()
	for _, e := range dataset.Entities {
		if err := insertAll(ctx, tx, r.dialect, e, tables[e]); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				zlog.Error().Err(rbErr).Msg("rollback failed")
			}
			return err
		}
		r.log().Str("table", string(e)).Int("rows", len(tables[e])).Msg("Loaded")
	}

	if err := tx.Commit(); err != nil {
		return benchErrors.NewLoadError(benchErrors.CodeWriteFailed, "commit load transaction", err)
	}

	if r.Analyze {
		if err := dbutils.Analyze(ctx, db, r.dialect, tableNames()); err != nil {
			zlog.Warn().Err(err).Msg("analyze failed")
		}
	}
	if size, err := dbutils.DbSize(ctx, db, r.dialect); err == nil {
		r.loadedDbSize = size
	}
	return nil
}

func insertAll(ctx context.Context, tx *sql.Tx, d dbutils.Dialect, e dataset.Entity, records []dataset.Record) error {
	stmt, err := tx.PrepareContext(ctx, insertStatement(d, e))
	if err != nil {
		return benchErrors.NewLoadError(benchErrors.CodeWriteFailed, "prepare insert into "+string(e), err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Values(e)...); err != nil {
			code := benchErrors.CodeWriteFailed
			if dbutils.IsConstraintViolation(err) {
				code = benchErrors.CodeConstraintViolation
			}
			return benchErrors.NewLoadError(code, fmt.Sprintf("insert into %s row %d", e, i+1), err).
				WithDetails(map[string]interface{}{"entity": string(e), "row": i + 1})
		}
	}
	return nil
}

// Export reads the six tables back, ordered by primary key.
func (r *Relational) Export(ctx context.Context) (*dataset.Dataset, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	tables := dataset.Tables{}
	for _, e := range dataset.Entities {
		records, err := selectAll(ctx, db, e)
		if err != nil {
			return nil, err
		}
		tables[e] = records
	}
	return dataset.FromTables(tables)
}

func selectAll(ctx context.Context, db *sql.DB, e dataset.Entity) ([]dataset.Record, error) {
	cols := e.Columns()
	orderBy := cols[0]
	if e == dataset.OrderItems {
		orderBy = "order_id, product_id"
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("select %s from %s order by %s", strings.Join(cols, ", "), e, orderBy))
	if err != nil {
		return nil, queryError("export "+string(e), err)
	}
	defer rows.Close()

	records := []dataset.Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, queryError("scan "+string(e), err)
		}

		rec := dataset.Record{}
		for i, c := range cols {
			rec[c] = normalize(c, values[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("export "+string(e), err)
	}
	return records, nil
}

// Drivers return text columns as []byte or string and integers as int64 or
// []byte; records hold strings and int64 only.
func normalize(column string, v any) any {
	text, isText := "", false
	switch x := v.(type) {
	case []byte:
		text, isText = string(x), true
	case string:
		text, isText = x, true
	case int32:
		return int64(x)
	case int:
		return int64(x)
	}
	if !isText {
		return v
	}
	if dataset.IsIntegerColumn(column) {
		return dataset.Coerce(text)
	}
	return text
}
