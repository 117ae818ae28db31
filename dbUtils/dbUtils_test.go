package dbutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

func TestRebind(t *testing.T) {
	q := "select * from users where country_code = ? and email = ?"
	if got := Rebind(Postgres, q); got != "select * from users where country_code = $1 and email = $2" {
		t.Errorf("postgres: %q", got)
	}
	if got := Rebind(MySQL, q); got != q {
		t.Errorf("mysql: %q", got)
	}
	if got := Rebind(SQLite, q); got != q {
		t.Errorf("sqlite: %q", got)
	}
}

func TestParseDialect(t *testing.T) {
	tests := map[string]Dialect{"mysql": MySQL, "PostgreSQL": Postgres, "pq": Postgres, "sqlite": SQLite, "sqlite3": SQLite}
	for in, want := range tests {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDialect("oracle"); err == nil {
		t.Error("expected an error for an unknown dialect")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		duplicate  bool
		missing    bool
		constraint bool
	}{
		{"mysql duplicate index", &mysql.MySQLError{Number: 1061}, true, false, false},
		{"mysql missing table", &mysql.MySQLError{Number: 1146}, false, true, false},
		{"mysql fk", &mysql.MySQLError{Number: 1452}, false, false, true},
		{"pq duplicate table", &pq.Error{Code: "42P07"}, true, false, false},
		{"pq undefined table", &pq.Error{Code: "42P01"}, false, true, false},
		{"pq fk", &pq.Error{Code: "23503"}, false, false, true},
		{"sqlite missing table", errors.New("no such table: users"), false, true, false},
		{"wrapped", fmt.Errorf("query: %w", &pq.Error{Code: "42P01"}), false, true, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicateObject(tt.err); got != tt.duplicate {
				t.Errorf("IsDuplicateObject = %v", got)
			}
			if got := IsMissingObject(tt.err); got != tt.missing {
				t.Errorf("IsMissingObject = %v", got)
			}
			if got := IsConstraintViolation(tt.err); got != tt.constraint {
				t.Errorf("IsConstraintViolation = %v", got)
			}
		})
	}
}
