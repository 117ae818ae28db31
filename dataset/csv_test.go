package dataset

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	benchErrors "tradebench/errors"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"12", int64(12)},
		{"-3", int64(-3)},
		{"1990-01-01", "1990-01-01"},
		{"Product A", "Product A"},
		{"", ""},
		{"99999999999999999999", "99999999999999999999"},
	}

	for _, tt := range tests {
		if got := Coerce(tt.in); got != tt.want {
			t.Errorf("Coerce(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestWriteThenReadCSV(t *testing.T) {
	dir := t.TempDir()
	fixture := Fixture()

	if err := WriteCSV(dir, fixture); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	for _, e := range Entities {
		if _, err := os.Stat(filepath.Join(dir, e.FileName())); err != nil {
			t.Fatalf("missing %s: %v", e.FileName(), err)
		}
	}

	tables, err := ReadCSV(context.Background(), DirSource{Dir: dir})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	if got := tables[Users][0]["user_id"]; got != int64(1) {
		t.Errorf("user_id coerced to %#v, want int64(1)", got)
	}
	if got := tables[Users][0]["date_of_birth"]; got != "1990-01-01" {
		t.Errorf("date_of_birth = %#v, want string", got)
	}
	if got := tables[Products][4]["price"]; got != int64(500) {
		t.Errorf("price = %#v, want int64(500)", got)
	}

	ds, err := FromTables(tables)
	if err != nil {
		t.Fatalf("FromTables: %v", err)
	}
	if !reflect.DeepEqual(ds, fixture) {
		t.Error("dataset read back from CSV differs from the one written")
	}
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(context.Background(), DirSource{Dir: t.TempDir()})
	if benchErrors.GetCode(err) != benchErrors.CodeSourceUnavailable {
		t.Errorf("got %v, want SOURCE_UNAVAILABLE", err)
	}
}

func TestReadCSVRaggedRow(t *testing.T) {
	dir := t.TempDir()
	if err := WriteCSV(dir, MiniFixture()); err != nil {
		t.Fatal(err)
	}
	bad := "country_code,name,continent_name\n1,United States\n"
	if err := os.WriteFile(filepath.Join(dir, Countries.FileName()), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadCSV(context.Background(), DirSource{Dir: dir})
	if benchErrors.GetCode(err) != benchErrors.CodeInvalidRow {
		t.Errorf("got %v, want INVALID_ROW", err)
	}
}
