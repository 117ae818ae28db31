package engine

import (
	"testing"

	benchErrors "tradebench/errors"
)

func TestBind(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		params  Params
		want    Bound
		wantErr string
	}{
		{name: "q1 default", query: Q1, want: Bound{Continent: "North America"}},
		{name: "q1 explicit", query: Q1, params: Params{ParamContinent: "Europe"}, want: Bound{Continent: "Europe"}},
		{name: "q2 default", query: Q2, want: Bound{Status: "Shipped"}},
		{name: "q2 delivered", query: Q2, params: Params{ParamStatus: "Delivered"}, want: Bound{Status: "Delivered"}},
		{name: "q3 no params", query: Q3, params: Params{}, want: Bound{}},
		{name: "q4 default", query: Q4, want: Bound{ExcludedStatus: "Pending"}},
		{name: "empty continent", query: Q1, params: Params{ParamContinent: ""}, wantErr: benchErrors.CodeInvalidParams},
		{name: "unknown status", query: Q2, params: Params{ParamStatus: "Lost"}, wantErr: benchErrors.CodeInvalidParams},
		{name: "unknown excluded status", query: Q4, params: Params{ParamExcludedStatus: "pending"}, wantErr: benchErrors.CodeInvalidParams},
		{name: "foreign parameter", query: Q3, params: Params{ParamContinent: "Asia"}, wantErr: benchErrors.CodeInvalidParams},
		{name: "unknown query", query: Query(9), wantErr: benchErrors.CodeUnknownQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.query.Bind(tt.params)
			if tt.wantErr != "" {
				if benchErrors.GetCategory(err) != benchErrors.ErrCategoryQuery || benchErrors.GetCode(err) != tt.wantErr {
					t.Fatalf("got error %v, want QUERY/%s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDefaultParamsIsACopy(t *testing.T) {
	p := DefaultParams(Q1)
	p[ParamContinent] = "Asia"
	if DefaultParams(Q1)[ParamContinent] != "North America" {
		t.Error("mutating returned params changed the defaults")
	}
}

func TestParseQuery(t *testing.T) {
	for _, q := range Queries {
		got, err := ParseQuery(q.String())
		if err != nil || got != q {
			t.Errorf("ParseQuery(%q) = %v, %v", q.String(), got, err)
		}
	}
	if q, err := ParseQuery("q3"); err != nil || q != Q3 {
		t.Errorf("lowercase parse failed: %v %v", q, err)
	}
	if _, err := ParseQuery("Q5"); benchErrors.GetCode(err) != benchErrors.CodeUnknownQuery {
		t.Errorf("got %v, want UNKNOWN_QUERY", err)
	}
}

func TestQueryString(t *testing.T) {
	if Q2.String() != "Q2" || Query(0).String() != "Query(0)" {
		t.Error("unexpected query names")
	}
}
