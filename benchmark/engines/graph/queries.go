package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	engine "tradebench/benchmark/engines/abstract"
	benchErrors "tradebench/errors"
)

const (
	q1 = `MATCH (u:User)-[:LIVES_IN]->(:Country {continent_name: $continent})
RETURN u.full_name AS full_name, u.email AS email`

	q2 = `MATCH (o:Order {status: $status})-[:PLACED_BY]->(u:User)
MATCH (o)-[c:CONTAINS]->(p:Product)
RETURN o.order_id AS order_id, u.full_name AS user_name, u.email AS user_email,
	p.name AS product_name, c.quantity AS quantity, p.price AS price,
	o.status AS status, o.created_at AS created_at`

	q3 = `MATCH (m:Merchant)
OPTIONAL MATCH (p:Product)-[:SOLD_BY]->(m)
OPTIONAL MATCH (:Order)-[c:CONTAINS]->(p)
RETURN m.merchant_id AS merchant_id, m.merchant_name AS merchant_name,
	coalesce(sum(p.price * c.quantity), 0) AS total_revenue`

	q4 = `MATCH (u:User)
OPTIONAL MATCH (o:Order)-[:PLACED_BY]->(u) WHERE o.status <> $excluded_status
OPTIONAL MATCH (o)-[c:CONTAINS]->(p:Product)
RETURN u.user_id AS user_id, u.full_name AS full_name,
	coalesce(avg(p.price * c.quantity), 0.0) AS avg_order_value`
)

// Neo4j answers patterns over unknown labels with no rows, so RunQuery never
// reports NOT_FOUND.
func (g *Graph) RunQuery(ctx context.Context, q engine.Query, params engine.Params) (*engine.ResultSet, error) {
	b, err := q.Bind(params)
	if err != nil {
		return nil, err
	}
	if _, err := g.conn(); err != nil {
		return nil, err
	}

	var cypher string
	args := map[string]any{}
	switch q {
	case engine.Q1:
		cypher = q1
		args[engine.ParamContinent] = b.Continent
	case engine.Q2:
		cypher = q2
		args[engine.ParamStatus] = b.Status
	case engine.Q3:
		cypher = q3
	case engine.Q4:
		cypher = q4
		args[engine.ParamExcludedStatus] = b.ExcludedStatus
	}

	res, err := g.read(ctx, cypher, args)
	if err != nil {
		return nil, benchErrors.NewQueryError(benchErrors.CodeBackendFailure, q.String(), err)
	}

	rs := engine.NewResultSet(q)
	for _, rec := range res.Records {
		r := recordReader{rec: rec}
		switch q {
		case engine.Q1:
			rs.UserContacts = append(rs.UserContacts, engine.UserContact{
				FullName: r.text("full_name"),
				Email:    r.text("email"),
			})
		case engine.Q2:
			rs.ShippedLines = append(rs.ShippedLines, engine.ShippedLine{
				OrderID:     r.integer("order_id"),
				UserName:    r.text("user_name"),
				UserEmail:   r.text("user_email"),
				ProductName: r.text("product_name"),
				Quantity:    r.integer("quantity"),
				Price:       r.integer("price"),
				Status:      r.text("status"),
				CreatedAt:   r.text("created_at"),
			})
		case engine.Q3:
			rs.MerchantRevenues = append(rs.MerchantRevenues, engine.MerchantRevenue{
				MerchantID:   r.integer("merchant_id"),
				MerchantName: r.text("merchant_name"),
				TotalRevenue: r.integer("total_revenue"),
			})
		case engine.Q4:
			rs.UserOrderValues = append(rs.UserOrderValues, engine.UserOrderValue{
				UserID:        r.integer("user_id"),
				FullName:      r.text("full_name"),
				AvgOrderValue: r.number("avg_order_value"),
			})
		}
		if r.err != nil {
			return nil, benchErrors.NewQueryError(benchErrors.CodeBackendFailure, q.String(), r.err)
		}
	}
	return rs, nil
}

// recordReader keeps the first conversion error so a row can be read
// without checking every column.
type recordReader struct {
	rec *neo4j.Record
	err error
}

func (r *recordReader) text(key string) string {
	v, _, err := neo4j.GetRecordValue[string](r.rec, key)
	r.keep(err)
	return v
}

func (r *recordReader) integer(key string) int64 {
	v, _, err := neo4j.GetRecordValue[int64](r.rec, key)
	r.keep(err)
	return v
}

func (r *recordReader) number(key string) float64 {
	v, _, err := neo4j.GetRecordValue[float64](r.rec, key)
	r.keep(err)
	return v
}

func (r *recordReader) keep(err error) {
	if r.err == nil {
		r.err = err
	}
}
