package dataset

import "fmt"

// Violation is a foreign key that points at a row that does not exist.
type Violation struct {
	Entity  Entity
	Key     string
	Column  string
	Missing int64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s=%d does not exist", v.Entity, v.Key, v.Column, v.Missing)
}

// CheckReferences returns every dangling foreign key in d, in table order.
func CheckReferences(d *Dataset) []Violation {
	countries := map[int64]bool{}
	for _, c := range d.Countries {
		countries[c.CountryCode] = true
	}
	users := map[int64]bool{}
	for _, u := range d.Users {
		users[u.UserID] = true
	}
	merchants := map[int64]bool{}
	for _, m := range d.Merchants {
		merchants[m.MerchantID] = true
	}
	orders := map[int64]bool{}
	for _, o := range d.Orders {
		orders[o.OrderID] = true
	}
	products := map[int64]bool{}
	for _, p := range d.Products {
		products[p.ProductID] = true
	}

	violations := []Violation{}
	check := func(e Entity, key string, column string, id int64, present map[int64]bool) {
		if !present[id] {
			violations = append(violations, Violation{Entity: e, Key: key, Column: column, Missing: id})
		}
	}

	for _, u := range d.Users {
		check(Users, fmt.Sprint(u.UserID), "country_code", u.CountryCode, countries)
	}
	for _, m := range d.Merchants {
		key := fmt.Sprint(m.MerchantID)
		check(Merchants, key, "user_id", m.UserID, users)
		check(Merchants, key, "country_code", m.CountryCode, countries)
	}
	for _, o := range d.Orders {
		check(Orders, fmt.Sprint(o.OrderID), "user_id", o.UserID, users)
	}
	for _, p := range d.Products {
		check(Products, fmt.Sprint(p.ProductID), "merchant_id", p.MerchantID, merchants)
	}
	for _, oi := range d.OrderItems {
		key := fmt.Sprintf("%d/%d", oi.OrderID, oi.ProductID)
		check(OrderItems, key, "order_id", oi.OrderID, orders)
		check(OrderItems, key, "product_id", oi.ProductID, products)
	}

	return violations
}
