package relational

import (
	"context"
	"database/sql"
	"math"

	engine "tradebench/benchmark/engines/abstract"
	dbutils "tradebench/dbUtils"
	benchErrors "tradebench/errors"
)

const (
	q1 = `
	select full_name, email
	from users
	where country_code in (select country_code from countries where continent_name = ?)
	`

	q2 = `
	select orders.order_id, users.full_name, users.email, products.name,
		order_items.quantity, products.price, orders.status, orders.created_at
	from orders
	join users on orders.user_id = users.user_id
	join order_items on orders.order_id = order_items.order_id
	join products on order_items.product_id = products.product_id
	where orders.status = ?
	`

	// merchants without sales keep a zero revenue
	q3 = `
	select merchants.merchant_id, merchants.merchant_name,
		coalesce(sum(products.price * order_items.quantity), 0)
	from merchants
	left join products on merchants.merchant_id = products.merchant_id
	left join order_items on products.product_id = order_items.product_id
	group by merchants.merchant_id, merchants.merchant_name
	`

	// the mean is taken client-side from the sum and count, as AVG precision
	// differs between dialects
	q4 = `
	select users.user_id, users.full_name,
		coalesce(sum(products.price * order_items.quantity), 0),
		count(products.product_id)
	from users
	left join orders on users.user_id = orders.user_id and orders.status <> ?
	left join order_items on orders.order_id = order_items.order_id
	left join products on order_items.product_id = products.product_id
	group by users.user_id, users.full_name
	`
)

func (r *Relational) RunQuery(ctx context.Context, q engine.Query, params engine.Params) (*engine.ResultSet, error) {
	b, err := q.Bind(params)
	if err != nil {
		return nil, err
	}
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	rs := engine.NewResultSet(q)
	switch q {
	case engine.Q1:
		err = r.query(ctx, db, q1, []any{b.Continent}, func(rows *sql.Rows) error {
			var row engine.UserContact
			if err := rows.Scan(&row.FullName, &row.Email); err != nil {
				return err
			}
			rs.UserContacts = append(rs.UserContacts, row)
			return nil
		})
	case engine.Q2:
		err = r.query(ctx, db, q2, []any{b.Status}, func(rows *sql.Rows) error {
			var row engine.ShippedLine
			if err := rows.Scan(&row.OrderID, &row.UserName, &row.UserEmail, &row.ProductName,
				&row.Quantity, &row.Price, &row.Status, &row.CreatedAt); err != nil {
				return err
			}
			rs.ShippedLines = append(rs.ShippedLines, row)
			return nil
		})
	case engine.Q3:
		err = r.query(ctx, db, q3, nil, func(rows *sql.Rows) error {
			var row engine.MerchantRevenue
			var revenue float64
			if err := rows.Scan(&row.MerchantID, &row.MerchantName, &revenue); err != nil {
				return err
			}
			row.TotalRevenue = int64(math.Round(revenue))
			rs.MerchantRevenues = append(rs.MerchantRevenues, row)
			return nil
		})
	case engine.Q4:
		err = r.query(ctx, db, q4, []any{b.ExcludedStatus}, func(rows *sql.Rows) error {
			var row engine.UserOrderValue
			var sum float64
			var count int64
			if err := rows.Scan(&row.UserID, &row.FullName, &sum, &count); err != nil {
				return err
			}
			if count > 0 {
				row.AvgOrderValue = sum / float64(count)
			}
			rs.UserOrderValues = append(rs.UserOrderValues, row)
			return nil
		})
	}
	if err != nil {
		return nil, queryError(q.String(), err)
	}
	return rs, nil
}

func (r *Relational) query(ctx context.Context, db *sql.DB, text string, args []any, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, dbutils.Rebind(r.dialect, text), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func queryError(msg string, err error) error {
	if dbutils.IsMissingObject(err) {
		return benchErrors.NewQueryError(benchErrors.CodeNotFound, msg, err)
	}
	return benchErrors.NewQueryError(benchErrors.CodeBackendFailure, msg, err)
}
