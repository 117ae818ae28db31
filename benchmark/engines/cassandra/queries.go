package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

// statements holds the CQL of every lookup the queries issue. Filters on
// non-key columns need "allow filtering" until an index serves them.
type statements struct {
	countriesByContinent string
	usersByCountry       string
	ordersByStatus       string
	ordersByUser         string
	productsByMerchant   string
	itemsByOrder         string
	itemsByProduct       string
	userByID             string
	productByID          string
	allMerchants         string
	allUsers             string
}

func (c *Cassandra) statements() statements {
	filtering := " allow filtering"
	if c.indexed {
		filtering = ""
	}
	ks := c.Keyspace

	return statements{
		countriesByContinent: fmt.Sprintf("select country_code from %s.countries where continent_name = ?%s", ks, filtering),
		usersByCountry:       fmt.Sprintf("select full_name, email from %s.users where country_code = ?%s", ks, filtering),
		ordersByStatus:       fmt.Sprintf("select order_id, user_id, status, created_at from %s.orders where status = ?%s", ks, filtering),
		ordersByUser:         fmt.Sprintf("select order_id, user_id, status, created_at from %s.orders where user_id = ?%s", ks, filtering),
		productsByMerchant:   fmt.Sprintf("select product_id, price from %s.products where merchant_id = ?%s", ks, filtering),
		// order item lookups keep the hint in both variants: order_id is only
		// part of the partition key
		itemsByOrder:   fmt.Sprintf("select order_id, product_id, quantity from %s.order_items where order_id = ? allow filtering", ks),
		itemsByProduct: fmt.Sprintf("select order_id, product_id, quantity from %s.order_items where product_id = ? allow filtering", ks),
		userByID:       fmt.Sprintf("select user_id, full_name, email from %s.users where user_id = ?", ks),
		productByID:    fmt.Sprintf("select product_id, name, price from %s.products where product_id = ?", ks),
		allMerchants:   fmt.Sprintf("select merchant_id, merchant_name from %s.merchants", ks),
		allUsers:       fmt.Sprintf("select user_id, full_name from %s.users", ks),
	}
}

func (c *Cassandra) RunQuery(ctx context.Context, q engine.Query, params engine.Params) (*engine.ResultSet, error) {
	b, err := q.Bind(params)
	if err != nil {
		return nil, err
	}
	s, err := c.conn()
	if err != nil {
		return nil, err
	}

	r := runner{ctx: ctx, session: s, stmts: c.statements()}
	rs := engine.NewResultSet(q)
	switch q {
	case engine.Q1:
		err = r.q1(rs, b)
	case engine.Q2:
		err = r.q2(rs, b)
	case engine.Q3:
		err = r.q3(rs)
	case engine.Q4:
		err = r.q4(rs, b)
	}
	if err != nil {
		if isMissingObject(err) {
			return nil, benchErrors.NewQueryError(benchErrors.CodeNotFound, q.String(), err)
		}
		return nil, benchErrors.NewQueryError(benchErrors.CodeBackendFailure, q.String(), err)
	}
	return rs, nil
}

type runner struct {
	ctx     context.Context
	session *gocql.Session
	stmts   statements
}

func (r runner) iter(stmt string, args ...any) *gocql.Iter {
	return r.session.Query(stmt, args...).WithContext(r.ctx).Iter()
}

func (r runner) q1(rs *engine.ResultSet, b engine.Bound) error {
	var codes []int64
	iter := r.iter(r.stmts.countriesByContinent, b.Continent)
	var code int64
	for iter.Scan(&code) {
		codes = append(codes, code)
	}
	if err := iter.Close(); err != nil {
		return err
	}

	for _, code := range codes {
		iter := r.iter(r.stmts.usersByCountry, code)
		var row engine.UserContact
		for iter.Scan(&row.FullName, &row.Email) {
			rs.UserContacts = append(rs.UserContacts, row)
		}
		if err := iter.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (r runner) orders(stmt string, arg any) ([]dataset.Order, error) {
	var orders []dataset.Order
	iter := r.iter(stmt, arg)
	var o dataset.Order
	for iter.Scan(&o.OrderID, &o.UserID, &o.Status, &o.CreatedAt) {
		orders = append(orders, o)
	}
	return orders, iter.Close()
}

func (r runner) items(stmt string, arg int64) ([]dataset.OrderItem, error) {
	var items []dataset.OrderItem
	iter := r.iter(stmt, arg)
	var oi dataset.OrderItem
	for iter.Scan(&oi.OrderID, &oi.ProductID, &oi.Quantity) {
		items = append(items, oi)
	}
	return items, iter.Close()
}

// product returns false when the product does not exist
func (r runner) product(id int64) (dataset.Product, bool, error) {
	var p dataset.Product
	err := r.session.Query(r.stmts.productByID, id).WithContext(r.ctx).Scan(&p.ProductID, &p.Name, &p.Price)
	if errors.Is(err, gocql.ErrNotFound) {
		return p, false, nil
	}
	return p, err == nil, err
}

func (r runner) q2(rs *engine.ResultSet, b engine.Bound) error {
	orders, err := r.orders(r.stmts.ordersByStatus, b.Status)
	if err != nil {
		return err
	}

	for _, o := range orders {
		var u dataset.User
		err := r.session.Query(r.stmts.userByID, o.UserID).WithContext(r.ctx).Scan(&u.UserID, &u.FullName, &u.Email)
		if errors.Is(err, gocql.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		items, err := r.items(r.stmts.itemsByOrder, o.OrderID)
		if err != nil {
			return err
		}
		for _, oi := range items {
			p, ok, err := r.product(oi.ProductID)
			if err != nil {
				return err
			}
			if ok {
				rs.ShippedLines = append(rs.ShippedLines, engine.NewShippedLine(o, u, p, oi))
			}
		}
	}
	return nil
}

func (r runner) q3(rs *engine.ResultSet) error {
	var merchants []engine.MerchantRevenue
	iter := r.iter(r.stmts.allMerchants)
	var m engine.MerchantRevenue
	for iter.Scan(&m.MerchantID, &m.MerchantName) {
		merchants = append(merchants, m)
	}
	if err := iter.Close(); err != nil {
		return err
	}

	for _, m := range merchants {
		var products []dataset.Product
		iter := r.iter(r.stmts.productsByMerchant, m.MerchantID)
		var p dataset.Product
		for iter.Scan(&p.ProductID, &p.Price) {
			products = append(products, p)
		}
		if err := iter.Close(); err != nil {
			return err
		}

		for _, p := range products {
			items, err := r.items(r.stmts.itemsByProduct, p.ProductID)
			if err != nil {
				return err
			}
			for _, oi := range items {
				m.TotalRevenue += p.Price * oi.Quantity
			}
		}
		rs.MerchantRevenues = append(rs.MerchantRevenues, m)
	}
	return nil
}

func (r runner) q4(rs *engine.ResultSet, b engine.Bound) error {
	var users []engine.UserOrderValue
	iter := r.iter(r.stmts.allUsers)
	var u engine.UserOrderValue
	for iter.Scan(&u.UserID, &u.FullName) {
		users = append(users, u)
	}
	if err := iter.Close(); err != nil {
		return err
	}

	for _, u := range users {
		orders, err := r.orders(r.stmts.ordersByUser, u.UserID)
		if err != nil {
			return err
		}

		var values []int64
		for _, o := range orders {
			if o.Status == b.ExcludedStatus {
				continue
			}
			items, err := r.items(r.stmts.itemsByOrder, o.OrderID)
			if err != nil {
				return err
			}
			for _, oi := range items {
				p, ok, err := r.product(oi.ProductID)
				if err != nil {
					return err
				}
				if ok {
					values = append(values, p.Price*oi.Quantity)
				}
			}
		}
		u.AvgOrderValue = engine.Mean(values)
		rs.UserOrderValues = append(rs.UserOrderValues, u)
	}
	return nil
}
