package graph

import (
	"context"
	"fmt"

	zlog "github.com/rs/zerolog/log"

	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

var labels = map[dataset.Entity]string{
	dataset.Countries: "Country",
	dataset.Users:     "User",
	dataset.Merchants: "Merchant",
	dataset.Orders:    "Order",
	dataset.Products:  "Product",
}

type relationship struct {
	name   string
	source dataset.Entity
	cypher string
}

// Relationships are created after all nodes. A row whose endpoint is missing
// matches nothing and creates no relationship.
var relationships = []relationship{
	{"LIVES_IN", dataset.Users,
		"MATCH (a:User {user_id: row.user_id}) MATCH (b:Country {country_code: row.country_code}) CREATE (a)-[:LIVES_IN]->(b)"},
	{"OPERATES_IN", dataset.Merchants,
		"MATCH (a:Merchant {merchant_id: row.merchant_id}) MATCH (b:Country {country_code: row.country_code}) CREATE (a)-[:OPERATES_IN]->(b)"},
	{"OWNED_BY", dataset.Merchants,
		"MATCH (a:Merchant {merchant_id: row.merchant_id}) MATCH (b:User {user_id: row.user_id}) CREATE (a)-[:OWNED_BY]->(b)"},
	{"PLACED_BY", dataset.Orders,
		"MATCH (a:Order {order_id: row.order_id}) MATCH (b:User {user_id: row.user_id}) CREATE (a)-[:PLACED_BY]->(b)"},
	{"SOLD_BY", dataset.Products,
		"MATCH (a:Product {product_id: row.product_id}) MATCH (b:Merchant {merchant_id: row.merchant_id}) CREATE (a)-[:SOLD_BY]->(b)"},
	{"CONTAINS", dataset.OrderItems,
		"MATCH (a:Order {order_id: row.order_id}) MATCH (b:Product {product_id: row.product_id}) CREATE (a)-[:CONTAINS {quantity: row.quantity}]->(b)"},
}

func (g *Graph) LoadDataset(ctx context.Context, ds *dataset.Dataset) error {
	if _, err := g.conn(); err != nil {
		return err
	}

	for _, v := range dataset.CheckReferences(ds) {
		zlog.Warn().Str("engine", "neo4j").Str("violation", v.String()).Msg("Dangling reference")
	}

	tables := ds.Tables()
	for _, e := range dataset.Entities {
		label, ok := labels[e]
		if !ok {
			continue
		}
		cypher := fmt.Sprintf("CREATE (n:%s) SET n = row", label)
		if err := g.unwind(ctx, cypher, tables[e]); err != nil {
			return benchErrors.NewLoadError(benchErrors.CodeWriteFailed, "create "+label+" nodes", err)
		}
		g.log().Str("label", label).Int("nodes", len(tables[e])).Msg("Loaded")
	}

	for _, rel := range relationships {
		if err := g.unwind(ctx, rel.cypher, tables[rel.source]); err != nil {
			return benchErrors.NewLoadError(benchErrors.CodeWriteFailed, "create "+rel.name+" relationships", err)
		}
		g.log().Str("relationship", rel.name).Msg("Loaded")
	}
	return nil
}

// unwind runs "UNWIND $rows AS row <cypher>" over records in batches.
func (g *Graph) unwind(ctx context.Context, cypher string, records []dataset.Record) error {
	stmt := "UNWIND $rows AS row " + cypher
	for start := 0; start < len(records); start += g.BatchSize {
		end := min(start+g.BatchSize, len(records))
		rows := make([]any, 0, end-start)
		for _, rec := range records[start:end] {
			rows = append(rows, map[string]any(rec))
		}
		if _, err := g.write(ctx, stmt, map[string]any{"rows": rows}); err != nil {
			return err
		}
	}
	return nil
}
