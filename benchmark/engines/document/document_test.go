package document

import (
	"os"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/benchmark/engines/enginetest"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

func TestNewFromConfig(t *testing.T) {
	d, err := New([]byte("mongodb:\n  uri: mongodb://localhost:27017\n"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Database != "trade" {
		t.Errorf("database = %q, want trade", d.Database)
	}

	for _, cfg := range []string{"engine: mongodb\n", "mongodb:\n  database: x\n", "mongodb: [\n"} {
		if _, err := New([]byte(cfg)); benchErrors.GetCategory(err) != benchErrors.ErrCategoryConfig {
			t.Errorf("%q: got %v, want CONFIG error", cfg, err)
		}
	}
}

func TestOrderItemsAreEmbedded(t *testing.T) {
	ds := dataset.Fixture()
	ds.OrderItems = append(ds.OrderItems, dataset.OrderItem{OrderID: 404, ProductID: 1, Quantity: 1})

	docs := toDocuments(ds)
	if len(docs["orders"]) != len(ds.Orders) {
		t.Fatalf("got %d orders, want %d", len(docs["orders"]), len(ds.Orders))
	}
	if _, ok := docs["order_items"]; ok {
		t.Error("order items must not get a collection of their own")
	}

	embedded := 0
	for _, doc := range docs["orders"] {
		o := doc.(orderDoc)
		if o.ProductsInfo == nil {
			t.Errorf("order %d: products_info must be an empty array, not null", o.OrderID)
		}
		embedded += len(o.ProductsInfo)
	}
	if embedded != len(ds.OrderItems)-1 {
		t.Errorf("embedded %d items, want %d", embedded, len(ds.OrderItems)-1)
	}
}

func TestPipelinesBindParams(t *testing.T) {
	b, err := engine.Q4.Bind(engine.Params{engine.ParamExcludedStatus: dataset.StatusShipped})
	if err != nil {
		t.Fatal(err)
	}
	raw, err := bson.MarshalExtJSON(bson.D{{Key: "p", Value: q4Pipeline(b)}}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"$ne":["$status","Shipped"]`) {
		t.Errorf("excluded status not bound: %s", raw)
	}

	b, _ = engine.Q2.Bind(engine.Params{engine.ParamStatus: dataset.StatusDelivered})
	first := q2Pipeline(b)[0]
	if first[0].Key != "$match" {
		t.Fatalf("q2 must start with $match, got %s", first[0].Key)
	}
}

func TestMongoConformance(t *testing.T) {
	uri := os.Getenv("TRADEBENCH_MONGO_URI")
	if uri == "" {
		t.Skip("TRADEBENCH_MONGO_URI not set")
	}
	enginetest.Run(t, func(t *testing.T) engine.Engine {
		d, err := NewWithURI(uri, "tradebench_test")
		if err != nil {
			t.Fatal(err)
		}
		return d
	})
}
