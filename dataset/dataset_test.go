package dataset

import (
	"errors"
	"testing"

	benchErrors "tradebench/errors"
)

func TestFixtureShape(t *testing.T) {
	d := Fixture()
	want := map[Entity]int{
		Countries: 10, Users: 10, Merchants: 10, Orders: 10, Products: 10, OrderItems: 12,
	}
	for e, n := range want {
		if d.Count(e) != n {
			t.Errorf("%s: got %d rows, want %d", e, d.Count(e), n)
		}
	}
	if v := CheckReferences(d); len(v) != 0 {
		t.Errorf("fixture has dangling references: %v", v)
	}
	if v := CheckReferences(MiniFixture()); len(v) != 0 {
		t.Errorf("mini fixture has dangling references: %v", v)
	}
}

func TestTablesColumnOrder(t *testing.T) {
	tables := Fixture().Tables()
	for _, e := range Entities {
		for _, rec := range tables[e] {
			if len(rec) != len(e.Columns()) {
				t.Fatalf("%s record has %d columns, want %d", e, len(rec), len(e.Columns()))
			}
			for _, c := range e.Columns() {
				v, ok := rec[c]
				if !ok {
					t.Fatalf("%s record missing %s", e, c)
				}
				_, isInt := v.(int64)
				if isInt != IsIntegerColumn(c) {
					t.Errorf("%s.%s: value %#v has wrong type", e, c, v)
				}
			}
		}
	}
}

func TestFromTablesInvalidRows(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Tables)
	}{
		{"non-integer price", func(tt Tables) { tt[Products][0]["price"] = "fifty" }},
		{"missing column", func(tt Tables) { delete(tt[Users][3], "email") }},
		{"unsupported type", func(tt Tables) { tt[OrderItems][0]["quantity"] = 2.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := Fixture().Tables()
			tt.mutate(tables)

			_, err := FromTables(tables)
			if err == nil {
				t.Fatal("expected an error")
			}
			var be *benchErrors.BenchError
			if !errors.As(err, &be) || be.Category != benchErrors.ErrCategoryLoad || be.Code != benchErrors.CodeInvalidRow {
				t.Errorf("got %v, want LOAD/INVALID_ROW", err)
			}
		})
	}
}

func TestFromTablesAcceptsNumericStrings(t *testing.T) {
	tables := MiniFixture().Tables()
	tables[Products][0]["price"] = "50"
	tables[Users][0]["full_name"] = int64(7)

	d, err := FromTables(tables)
	if err != nil {
		t.Fatalf("FromTables: %v", err)
	}
	if d.Products[0].Price != 50 {
		t.Errorf("price = %d, want 50", d.Products[0].Price)
	}
	if d.Users[0].FullName != "7" {
		t.Errorf("full_name = %q, want \"7\"", d.Users[0].FullName)
	}
}

func TestIsOrderStatus(t *testing.T) {
	for _, s := range OrderStatuses {
		if !IsOrderStatus(s) {
			t.Errorf("%q should be a status", s)
		}
	}
	if IsOrderStatus("Cancelled") || IsOrderStatus("shipped") {
		t.Error("unexpected status accepted")
	}
}
