package keyvalue

import (
	"context"
	"strconv"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

// Stores have no missing-object condition, so RunQuery never reports
// NOT_FOUND: an empty store answers with no rows.
func (k *KeyValue) RunQuery(ctx context.Context, q engine.Query, params engine.Params) (*engine.ResultSet, error) {
	b, err := q.Bind(params)
	if err != nil {
		return nil, err
	}
	store, err := k.conn()
	if err != nil {
		return nil, err
	}

	r := &reader{ctx: ctx, store: store, indexed: k.indexed, scanned: map[dataset.Entity][]Fields{}}
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
		return nil, benchErrors.NewQueryError(benchErrors.CodeBackendFailure, q.String(), err)
	}
	return rs, nil
}

// reader fetches records for one query. Without indexes, a filtered read
// scans the whole entity once and filters the cached records on the client.
type reader struct {
	ctx     context.Context
	store   Store
	indexed bool
	scanned map[dataset.Entity][]Fields
}

func (r *reader) fetch(keys []string) ([]Fields, error) {
	records := make([]Fields, 0, len(keys))
	for _, key := range keys {
		fields, err := r.store.GetRecord(r.ctx, key)
		if err != nil {
			return nil, err
		}
		if fields != nil {
			records = append(records, fields)
		}
	}
	return records, nil
}

func (r *reader) scan(e dataset.Entity) ([]Fields, error) {
	if records, ok := r.scanned[e]; ok {
		return records, nil
	}
	keys, err := r.store.Keys(r.ctx, prefix(e))
	if err != nil {
		return nil, err
	}
	records, err := r.fetch(keys)
	if err != nil {
		return nil, err
	}
	r.scanned[e] = records
	return records, nil
}

func (r *reader) where(e dataset.Entity, field, value string) (*dataset.Dataset, error) {
	if r.indexed && isIndexed(e, field) {
		keys, err := r.store.SetMembers(r.ctx, indexKey(e, field, value))
		if err != nil {
			return nil, err
		}
		records, err := r.fetch(keys)
		if err != nil {
			return nil, err
		}
		return decode(e, records)
	}

	all, err := r.scan(e)
	if err != nil {
		return nil, err
	}
	var records []Fields
	for _, fields := range all {
		if fields[field] == value {
			records = append(records, fields)
		}
	}
	return decode(e, records)
}

func (r *reader) all(e dataset.Entity) (*dataset.Dataset, error) {
	records, err := r.scan(e)
	if err != nil {
		return nil, err
	}
	return decode(e, records)
}

// get returns an empty dataset when the key does not exist.
func (r *reader) get(e dataset.Entity, id int64) (*dataset.Dataset, error) {
	records, err := r.fetch([]string{entityKey(e, id)})
	if err != nil {
		return nil, err
	}
	return decode(e, records)
}

func decode(e dataset.Entity, records []Fields) (*dataset.Dataset, error) {
	rows := make([]dataset.Record, len(records))
	for i, fields := range records {
		rec := make(dataset.Record, len(fields))
		for k, v := range fields {
			rec[k] = v
		}
		rows[i] = rec
	}
	return dataset.FromTables(dataset.Tables{e: rows})
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func (r *reader) q1(rs *engine.ResultSet, b engine.Bound) error {
	countries, err := r.where(dataset.Countries, "continent_name", b.Continent)
	if err != nil {
		return err
	}
	for _, c := range countries.Countries {
		users, err := r.where(dataset.Users, "country_code", itoa(c.CountryCode))
		if err != nil {
			return err
		}
		for _, u := range users.Users {
			rs.UserContacts = append(rs.UserContacts, engine.UserContact{FullName: u.FullName, Email: u.Email})
		}
	}
	return nil
}

func (r *reader) q2(rs *engine.ResultSet, b engine.Bound) error {
	orders, err := r.where(dataset.Orders, "status", b.Status)
	if err != nil {
		return err
	}
	for _, o := range orders.Orders {
		user, err := r.get(dataset.Users, o.UserID)
		if err != nil {
			return err
		}
		if len(user.Users) == 0 {
			continue
		}
		items, err := r.where(dataset.OrderItems, "order_id", itoa(o.OrderID))
		if err != nil {
			return err
		}
		for _, oi := range items.OrderItems {
			product, err := r.get(dataset.Products, oi.ProductID)
			if err != nil {
				return err
			}
			if len(product.Products) > 0 {
				rs.ShippedLines = append(rs.ShippedLines, engine.NewShippedLine(o, user.Users[0], product.Products[0], oi))
			}
		}
	}
	return nil
}

func (r *reader) q3(rs *engine.ResultSet) error {
	merchants, err := r.all(dataset.Merchants)
	if err != nil {
		return err
	}
	for _, m := range merchants.Merchants {
		row := engine.MerchantRevenue{MerchantID: m.MerchantID, MerchantName: m.MerchantName}
		products, err := r.where(dataset.Products, "merchant_id", itoa(m.MerchantID))
		if err != nil {
			return err
		}
		for _, p := range products.Products {
			items, err := r.where(dataset.OrderItems, "product_id", itoa(p.ProductID))
			if err != nil {
				return err
			}
			for _, oi := range items.OrderItems {
				row.TotalRevenue += p.Price * oi.Quantity
			}
		}
		rs.MerchantRevenues = append(rs.MerchantRevenues, row)
	}
	return nil
}

func (r *reader) q4(rs *engine.ResultSet, b engine.Bound) error {
	users, err := r.all(dataset.Users)
	if err != nil {
		return err
	}
	for _, u := range users.Users {
		orders, err := r.where(dataset.Orders, "user_id", itoa(u.UserID))
		if err != nil {
			return err
		}
		var values []int64
		for _, o := range orders.Orders {
			if o.Status == b.ExcludedStatus {
				continue
			}
			items, err := r.where(dataset.OrderItems, "order_id", itoa(o.OrderID))
			if err != nil {
				return err
			}
			for _, oi := range items.OrderItems {
				product, err := r.get(dataset.Products, oi.ProductID)
				if err != nil {
					return err
				}
				if len(product.Products) > 0 {
					values = append(values, product.Products[0].Price*oi.Quantity)
				}
			}
		}
		rs.UserOrderValues = append(rs.UserOrderValues, engine.UserOrderValue{
			UserID: u.UserID, FullName: u.FullName, AvgOrderValue: engine.Mean(values),
		})
	}
	return nil
}
