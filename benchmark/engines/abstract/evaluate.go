package engine

import "tradebench/dataset"

// Evaluate answers q over an in-memory dataset. Engines that join on the
// client side build their results the same way, and tests use it as the
// expected answer for every engine. Rows that reference missing entities
// are skipped, like an inner join would.
func Evaluate(q Query, params Params, ds *dataset.Dataset) (*ResultSet, error) {
	b, err := q.Bind(params)
	if err != nil {
		return nil, err
	}

	idx := NewLookup(ds)
	rs := NewResultSet(q)

	switch q {
	case Q1:
		for _, u := range ds.Users {
			if c, ok := idx.Countries[u.CountryCode]; ok && c.ContinentName == b.Continent {
				rs.UserContacts = append(rs.UserContacts, UserContact{FullName: u.FullName, Email: u.Email})
			}
		}
	case Q2:
		for _, o := range ds.Orders {
			if o.Status != b.Status {
				continue
			}
			u, ok := idx.Users[o.UserID]
			if !ok {
				continue
			}
			for _, oi := range idx.ItemsByOrder[o.OrderID] {
				p, ok := idx.Products[oi.ProductID]
				if !ok {
					continue
				}
				rs.ShippedLines = append(rs.ShippedLines, NewShippedLine(o, u, p, oi))
			}
		}
	case Q3:
		for _, m := range ds.Merchants {
			var revenue int64
			for _, p := range idx.ProductsByMerchant[m.MerchantID] {
				for _, oi := range idx.ItemsByProduct[p.ProductID] {
					revenue += p.Price * oi.Quantity
				}
			}
			rs.MerchantRevenues = append(rs.MerchantRevenues, MerchantRevenue{
				MerchantID: m.MerchantID, MerchantName: m.MerchantName, TotalRevenue: revenue,
			})
		}
	case Q4:
		for _, u := range ds.Users {
			var values []int64
			for _, o := range idx.OrdersByUser[u.UserID] {
				if o.Status == b.ExcludedStatus {
					continue
				}
				for _, oi := range idx.ItemsByOrder[o.OrderID] {
					if p, ok := idx.Products[oi.ProductID]; ok {
						values = append(values, p.Price*oi.Quantity)
					}
				}
			}
			rs.UserOrderValues = append(rs.UserOrderValues, UserOrderValue{
				UserID: u.UserID, FullName: u.FullName, AvgOrderValue: Mean(values),
			})
		}
	}

	return rs, nil
}

// NewShippedLine assembles one Q2 row.
func NewShippedLine(o dataset.Order, u dataset.User, p dataset.Product, oi dataset.OrderItem) ShippedLine {
	return ShippedLine{
		OrderID:     o.OrderID,
		UserName:    u.FullName,
		UserEmail:   u.Email,
		ProductName: p.Name,
		Quantity:    oi.Quantity,
		Price:       p.Price,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
}

// Mean returns the arithmetic mean of values, or 0 when there are none.
func Mean(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// Lookup indexes a dataset by primary and foreign keys.
type Lookup struct {
	Countries          map[int64]dataset.Country
	Users              map[int64]dataset.User
	Products           map[int64]dataset.Product
	OrdersByUser       map[int64][]dataset.Order
	ProductsByMerchant map[int64][]dataset.Product
	ItemsByOrder       map[int64][]dataset.OrderItem
	ItemsByProduct     map[int64][]dataset.OrderItem
}

func NewLookup(ds *dataset.Dataset) *Lookup {
	l := &Lookup{
		Countries:          map[int64]dataset.Country{},
		Users:              map[int64]dataset.User{},
		Products:           map[int64]dataset.Product{},
		OrdersByUser:       map[int64][]dataset.Order{},
		ProductsByMerchant: map[int64][]dataset.Product{},
		ItemsByOrder:       map[int64][]dataset.OrderItem{},
		ItemsByProduct:     map[int64][]dataset.OrderItem{},
	}
	for _, c := range ds.Countries {
		l.Countries[c.CountryCode] = c
	}
	for _, u := range ds.Users {
		l.Users[u.UserID] = u
	}
	for _, p := range ds.Products {
		l.Products[p.ProductID] = p
		l.ProductsByMerchant[p.MerchantID] = append(l.ProductsByMerchant[p.MerchantID], p)
	}
	for _, o := range ds.Orders {
		l.OrdersByUser[o.UserID] = append(l.OrdersByUser[o.UserID], o)
	}
	for _, oi := range ds.OrderItems {
		l.ItemsByOrder[oi.OrderID] = append(l.ItemsByOrder[oi.OrderID], oi)
		l.ItemsByProduct[oi.ProductID] = append(l.ItemsByProduct[oi.ProductID], oi)
	}
	return l
}
