// Package enginetest holds the behaviour every engine must share. Each engine
// package runs Run from its own tests against a real backend.
package enginetest

import (
	"context"
	"testing"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

// Factory returns a fresh, unconnected engine. Engines that share a backend
// between calls should implement engine.Resetter so each test starts empty.
type Factory func(t *testing.T) engine.Engine

// Run executes the conformance suite.
func Run(t *testing.T, factory Factory) {
	t.Run("DisconnectWithoutConnect", func(t *testing.T) { testDisconnectWithoutConnect(t, factory) })
	t.Run("QueryBeforeConnect", func(t *testing.T) { testQueryBeforeConnect(t, factory) })
	t.Run("SchemaIsIdempotent", func(t *testing.T) { testSchemaIsIdempotent(t, factory) })
	t.Run("FixtureAnswers", func(t *testing.T) { testFixtureAnswers(t, factory) })
	t.Run("IndexesKeepAnswers", func(t *testing.T) { testIndexesKeepAnswers(t, factory) })
	t.Run("LiteralParamValues", func(t *testing.T) { testLiteralParamValues(t, factory) })
	t.Run("MiniFixture", func(t *testing.T) { testMiniFixture(t, factory) })
	t.Run("InvalidParams", func(t *testing.T) { testInvalidParams(t, factory) })
	t.Run("LoadPolicy", func(t *testing.T) { testLoadPolicy(t, factory) })
}

// Open connects e, resets it when possible, and provisions the schema. The
// engine is disconnected when the test ends.
func Open(t *testing.T, e engine.Engine) {
	t.Helper()
	ctx := context.Background()

	if err := e.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := e.Disconnect(context.Background()); err != nil {
			t.Errorf("Disconnect: %v", err)
		}
	})

	if r, ok := e.(engine.Resetter); ok {
		if err := r.Reset(ctx); err != nil {
			t.Fatalf("Reset: %v", err)
		}
	}
	if err := e.ProvisionSchema(ctx); err != nil {
		t.Fatalf("ProvisionSchema: %v", err)
	}
}

// Load opens e and loads ds.
func Load(t *testing.T, e engine.Engine, ds *dataset.Dataset) {
	t.Helper()
	Open(t, e)
	if err := e.LoadDataset(context.Background(), ds); err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
}

// CheckAnswers runs every query with its default parameters and compares
// the rows with the in-memory evaluation of ds.
func CheckAnswers(t *testing.T, e engine.Engine, ds *dataset.Dataset) {
	t.Helper()
	for _, q := range engine.Queries {
		want, err := engine.Evaluate(q, nil, ds)
		if err != nil {
			t.Fatalf("Evaluate %s: %v", q, err)
		}
		got, err := e.RunQuery(context.Background(), q, nil)
		if err != nil {
			t.Fatalf("RunQuery %s: %v", q, err)
		}
		if !got.Equal(want) {
			got.Sort()
			want.Sort()
			t.Errorf("%s mismatch\n got: %+v\nwant: %+v", q, got, want)
		}
	}
}

func testDisconnectWithoutConnect(t *testing.T, factory Factory) {
	e := factory(t)
	if err := e.Disconnect(context.Background()); err != nil {
		t.Errorf("Disconnect before Connect: %v", err)
	}
}

func testQueryBeforeConnect(t *testing.T, factory Factory) {
	e := factory(t)
	_, err := e.RunQuery(context.Background(), engine.Q1, nil)
	if benchErrors.GetCode(err) != benchErrors.CodeNotConnected {
		t.Errorf("got %v, want NOT_CONNECTED", err)
	}
}

func testSchemaIsIdempotent(t *testing.T, factory Factory) {
	e := factory(t)
	Open(t, e)

	if err := e.ProvisionSchema(context.Background()); err != nil {
		t.Fatalf("second ProvisionSchema: %v", err)
	}
	if err := e.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
}

func testFixtureAnswers(t *testing.T, factory Factory) {
	e := factory(t)
	ds := dataset.Fixture()
	Load(t, e, ds)

	CheckAnswers(t, e, ds)

	got, err := e.RunQuery(context.Background(), engine.Q1, engine.Params{engine.ParamContinent: "North America"})
	if err != nil {
		t.Fatal(err)
	}
	want := &engine.ResultSet{Query: engine.Q1, UserContacts: []engine.UserContact{
		{FullName: "John Doe", Email: "john@example.com"},
		{FullName: "Bob Johnson", Email: "bob@example.com"},
		{FullName: "Alice Brown", Email: "alice@example.com"},
	}}
	if !got.Equal(want) {
		t.Errorf("Q1 North America = %+v", got.UserContacts)
	}

	europe, err := e.RunQuery(context.Background(), engine.Q1, engine.Params{engine.ParamContinent: "Europe"})
	if err != nil {
		t.Fatal(err)
	}
	wantEurope, _ := engine.Evaluate(engine.Q1, engine.Params{engine.ParamContinent: "Europe"}, ds)
	if !europe.Equal(wantEurope) {
		t.Errorf("Q1 Europe = %+v", europe.UserContacts)
	}
}

func testIndexesKeepAnswers(t *testing.T, factory Factory) {
	e := factory(t)
	ds := dataset.Fixture()
	Load(t, e, ds)
	ctx := context.Background()

	before := map[engine.Query]*engine.ResultSet{}
	for _, q := range engine.Queries {
		rs, err := e.RunQuery(ctx, q, nil)
		if err != nil {
			t.Fatalf("unindexed %s: %v", q, err)
		}
		before[q] = rs
	}

	if err := e.ProvisionIndexes(ctx); err != nil {
		t.Fatalf("ProvisionIndexes: %v", err)
	}
	if err := e.ProvisionIndexes(ctx); err != nil {
		t.Fatalf("second ProvisionIndexes: %v", err)
	}

	for _, q := range engine.Queries {
		after, err := e.RunQuery(ctx, q, nil)
		if err != nil {
			t.Fatalf("indexed %s: %v", q, err)
		}
		if !after.Equal(before[q]) {
			t.Errorf("%s changed after indexing", q)
		}
	}
	CheckAnswers(t, e, ds)
}

// Parameter values are matched literally: glob characters and separators
// inside a value select nothing more before or after indexing.
func testLiteralParamValues(t *testing.T, factory Factory) {
	e := factory(t)
	ds := dataset.Fixture()
	for i := range ds.Countries {
		if ds.Countries[i].Name == "Canada" {
			ds.Countries[i].ContinentName = "North America#East"
		}
	}
	Load(t, e, ds)
	ctx := context.Background()

	continents := []string{"North America", "North America#East", "North America%23East", "*", "North*", "?orth America"}
	check := func(pass string) {
		for _, continent := range continents {
			params := engine.Params{engine.ParamContinent: continent}
			want, err := engine.Evaluate(engine.Q1, params, ds)
			if err != nil {
				t.Fatal(err)
			}
			got, err := e.RunQuery(ctx, engine.Q1, params)
			if err != nil {
				t.Fatalf("%s Q1 %q: %v", pass, continent, err)
			}
			if !got.Equal(want) {
				t.Errorf("%s Q1 %q = %+v, want %+v", pass, continent, got.UserContacts, want.UserContacts)
			}
		}
	}

	check("unindexed")
	if err := e.ProvisionIndexes(ctx); err != nil {
		t.Fatalf("ProvisionIndexes: %v", err)
	}
	check("indexed")
}

func testMiniFixture(t *testing.T, factory Factory) {
	e := factory(t)
	Load(t, e, dataset.MiniFixture())
	ctx := context.Background()

	q3, err := e.RunQuery(ctx, engine.Q3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if q3.Len() != 1 || q3.MerchantRevenues[0].MerchantID != 1 || q3.MerchantRevenues[0].TotalRevenue != 100 {
		t.Errorf("Q3 = %+v, want merchant 1 with revenue 100", q3.MerchantRevenues)
	}

	q4, err := e.RunQuery(ctx, engine.Q4, engine.Params{engine.ParamExcludedStatus: dataset.StatusShipped})
	if err != nil {
		t.Fatal(err)
	}
	if q4.Len() != 1 || q4.UserOrderValues[0].AvgOrderValue != 0 {
		t.Errorf("Q4 = %+v, want a zero average", q4.UserOrderValues)
	}
}

func testInvalidParams(t *testing.T, factory Factory) {
	e := factory(t)
	Load(t, e, dataset.MiniFixture())
	ctx := context.Background()

	tests := []struct {
		name   string
		query  engine.Query
		params engine.Params
		code   string
	}{
		{"empty continent", engine.Q1, engine.Params{engine.ParamContinent: ""}, benchErrors.CodeInvalidParams},
		{"unknown status", engine.Q2, engine.Params{engine.ParamStatus: "Lost"}, benchErrors.CodeInvalidParams},
		{"unknown query", engine.Query(42), nil, benchErrors.CodeUnknownQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.RunQuery(ctx, tt.query, tt.params)
			if benchErrors.GetCategory(err) != benchErrors.ErrCategoryQuery || benchErrors.GetCode(err) != tt.code {
				t.Errorf("got %v, want QUERY/%s", err, tt.code)
			}
		})
	}
}

func testLoadPolicy(t *testing.T, factory Factory) {
	e := factory(t)
	holder, ok := e.(engine.PolicyHolder)
	if !ok {
		t.Skip("engine does not report a load policy")
	}

	ds := dataset.MiniFixture()
	ds.Orders = append(ds.Orders, dataset.Order{OrderID: 2, UserID: 99, Status: dataset.StatusShipped, CreatedAt: "2023-01-06"})
	Open(t, e)
	err := e.LoadDataset(context.Background(), ds)

	switch holder.LoadPolicy() {
	case engine.FailFast:
		if benchErrors.GetCategory(err) != benchErrors.ErrCategoryLoad || benchErrors.GetCode(err) != benchErrors.CodeConstraintViolation {
			t.Fatalf("got %v, want LOAD/CONSTRAINT_VIOLATION", err)
		}
		rs, err := e.RunQuery(context.Background(), engine.Q3, nil)
		if err != nil {
			t.Fatal(err)
		}
		if rs.Len() != 0 {
			t.Errorf("load was not rolled back: %+v", rs.MerchantRevenues)
		}
	case engine.BestEffort:
		if err != nil {
			t.Fatalf("best-effort load failed: %v", err)
		}
		rs, err := e.RunQuery(context.Background(), engine.Q3, nil)
		if err != nil {
			t.Fatal(err)
		}
		if rs.Len() != 1 || rs.MerchantRevenues[0].TotalRevenue != 100 {
			t.Errorf("Q3 = %+v, want revenue 100", rs.MerchantRevenues)
		}
	}
}
