package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	benchErrors "tradebench/errors"
	"tradebench/util"
)

// Coerce converts one CSV field: an optionally signed run of digits becomes
// an int64, anything else (including integers that overflow) stays a string.
func Coerce(field string) any {
	if !util.IsInteger(field) {
		return field
	}
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return field
	}
	return n
}

// ReadCSV reads the six tables from src. Each file must carry a header row;
// fields are coerced with Coerce.
func ReadCSV(ctx context.Context, src Source) (Tables, error) {
	tables := Tables{}
	for _, e := range Entities {
		records, err := readEntity(ctx, src, e)
		if err != nil {
			return nil, err
		}
		tables[e] = records
	}
	return tables, nil
}

func readEntity(ctx context.Context, src Source, e Entity) ([]Record, error) {
	rc, err := src.Open(ctx, e.FileName())
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, benchErrors.NewLoadError(benchErrors.CodeInvalidRow,
			fmt.Sprintf("%s: missing header", e.FileName()), nil)
	}
	if err != nil {
		return nil, benchErrors.NewLoadError(benchErrors.CodeInvalidRow,
			fmt.Sprintf("%s: read header", e.FileName()), err)
	}

	records := []Record{}
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, benchErrors.NewLoadError(benchErrors.CodeInvalidRow,
				fmt.Sprintf("%s: line %d", e.FileName(), line), err)
		}

		rec := Record{}
		for i, column := range header {
			rec[column] = Coerce(row[i])
		}
		records = append(records, rec)
	}

	return records, nil
}

// WriteCSV writes d as six CSV files with header rows into dir, creating it
// if needed.
func WriteCSV(dir string, d *Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return benchErrors.NewLoadError(benchErrors.CodeWriteFailed, "create "+dir, err)
	}

	tables := d.Tables()
	for _, e := range Entities {
		if err := writeEntity(filepath.Join(dir, e.FileName()), e, tables[e]); err != nil {
			return benchErrors.NewLoadError(benchErrors.CodeWriteFailed, "write "+e.FileName(), err)
		}
	}
	return nil
}

func writeEntity(path string, e Entity, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(e.Columns()); err != nil {
		return err
	}
	for _, rec := range records {
		row := make([]string, 0, len(e.Columns()))
		for _, v := range rec.Values(e) {
			row = append(row, util.Text(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
