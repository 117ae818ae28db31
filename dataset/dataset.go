// Package dataset holds the six-table e-commerce dataset every engine loads,
// together with the ways of producing it: CSV files (local or S3), the
// canonical fixture, and a seedable synthetic generator.
package dataset

import (
	"fmt"
	"strconv"

	benchErrors "tradebench/errors"
	"tradebench/util"
)

// Entity names one of the six tables. The value doubles as the table,
// collection, and CSV base name.
type Entity string

const (
	Countries  Entity = "countries"
	Users      Entity = "users"
	Merchants  Entity = "merchants"
	Orders     Entity = "orders"
	Products   Entity = "products"
	OrderItems Entity = "order_items"
)

// Entities lists the tables in foreign key order: every table only references
// tables that appear before it.
var Entities = []Entity{Countries, Users, Merchants, Orders, Products, OrderItems}

var columns = map[Entity][]string{
	Countries:  {"country_code", "name", "continent_name"},
	Users:      {"user_id", "full_name", "email", "gender", "date_of_birth", "country_code"},
	Merchants:  {"merchant_id", "merchant_name", "user_id", "country_code"},
	Orders:     {"order_id", "user_id", "status", "created_at"},
	Products:   {"product_id", "merchant_id", "name", "price", "status", "created_at"},
	OrderItems: {"order_id", "product_id", "quantity"},
}

var integerColumns = map[string]bool{
	"country_code": true,
	"user_id":      true,
	"merchant_id":  true,
	"order_id":     true,
	"product_id":   true,
	"price":        true,
	"quantity":     true,
}

// Columns returns the column names of e in their canonical order.
func (e Entity) Columns() []string {
	return columns[e]
}

// FileName returns the CSV file name of e.
func (e Entity) FileName() string {
	return string(e) + ".csv"
}

// IsIntegerColumn reports whether the named column holds integers.
func IsIntegerColumn(name string) bool {
	return integerColumns[name]
}

// Order statuses.
const (
	StatusPending    = "Pending"
	StatusShipped    = "Shipped"
	StatusDelivered  = "Delivered"
	StatusProcessing = "Processing"
)

// OrderStatuses lists every valid order status.
var OrderStatuses = []string{StatusPending, StatusShipped, StatusDelivered, StatusProcessing}

// IsOrderStatus reports whether s is a valid order status.
func IsOrderStatus(s string) bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Country struct {
	CountryCode   int64
	Name          string
	ContinentName string
}

type User struct {
	UserID      int64
	FullName    string
	Email       string
	Gender      string
	DateOfBirth string
	CountryCode int64
}

type Merchant struct {
	MerchantID   int64
	MerchantName string
	UserID       int64
	CountryCode  int64
}

type Order struct {
	OrderID   int64
	UserID    int64
	Status    string
	CreatedAt string
}

type Product struct {
	ProductID  int64
	MerchantID int64
	Name       string
	Price      int64
	Status     string
	CreatedAt  string
}

// OrderItem links an order and a product; (OrderID, ProductID) is its key.
type OrderItem struct {
	OrderID   int64
	ProductID int64
	Quantity  int64
}

// Dataset is the typed form of the six tables.
type Dataset struct {
	Countries  []Country
	Users      []User
	Merchants  []Merchant
	Orders     []Order
	Products   []Product
	OrderItems []OrderItem
}

// Count returns the number of rows of e.
func (d *Dataset) Count(e Entity) int {
	switch e {
	case Countries:
		return len(d.Countries)
	case Users:
		return len(d.Users)
	case Merchants:
		return len(d.Merchants)
	case Orders:
		return len(d.Orders)
	case Products:
		return len(d.Products)
	case OrderItems:
		return len(d.OrderItems)
	}
	return 0
}

// Record is one row as a column name to value mapping. Values are int64 for
// integer columns and string otherwise.
type Record map[string]any

// Values returns the record's values in the column order of e.
func (r Record) Values(e Entity) []any {
	values := make([]any, 0, len(e.Columns()))
	for _, c := range e.Columns() {
		values = append(values, r[c])
	}
	return values
}

// Tables maps each entity to its ordered rows.
type Tables map[Entity][]Record

// Tables converts the dataset to its record form.
func (d *Dataset) Tables() Tables {
	t := Tables{}
	for _, c := range d.Countries {
		t[Countries] = append(t[Countries], Record{
			"country_code": c.CountryCode, "name": c.Name, "continent_name": c.ContinentName,
		})
	}
	for _, u := range d.Users {
		t[Users] = append(t[Users], Record{
			"user_id": u.UserID, "full_name": u.FullName, "email": u.Email, "gender": u.Gender,
			"date_of_birth": u.DateOfBirth, "country_code": u.CountryCode,
		})
	}
	for _, m := range d.Merchants {
		t[Merchants] = append(t[Merchants], Record{
			"merchant_id": m.MerchantID, "merchant_name": m.MerchantName, "user_id": m.UserID,
			"country_code": m.CountryCode,
		})
	}
	for _, o := range d.Orders {
		t[Orders] = append(t[Orders], Record{
			"order_id": o.OrderID, "user_id": o.UserID, "status": o.Status, "created_at": o.CreatedAt,
		})
	}
	for _, p := range d.Products {
		t[Products] = append(t[Products], Record{
			"product_id": p.ProductID, "merchant_id": p.MerchantID, "name": p.Name, "price": p.Price,
			"status": p.Status, "created_at": p.CreatedAt,
		})
	}
	for _, oi := range d.OrderItems {
		t[OrderItems] = append(t[OrderItems], Record{
			"order_id": oi.OrderID, "product_id": oi.ProductID, "quantity": oi.Quantity,
		})
	}
	return t
}

// FromTables decodes record rows into a typed dataset. A missing column or a
// non-integer value in an integer column is a load error.
func FromTables(t Tables) (*Dataset, error) {
	d := &Dataset{}

	for i, rec := range t[Countries] {
		r := rowReader{entity: Countries, index: i, rec: rec}
		d.Countries = append(d.Countries, Country{
			CountryCode: r.int("country_code"), Name: r.str("name"), ContinentName: r.str("continent_name"),
		})
		if r.err != nil {
			return nil, r.err
		}
	}
	for i, rec := range t[Users] {
		r := rowReader{entity: Users, index: i, rec: rec}
		d.Users = append(d.Users, User{
			UserID: r.int("user_id"), FullName: r.str("full_name"), Email: r.str("email"),
			Gender: r.str("gender"), DateOfBirth: r.str("date_of_birth"), CountryCode: r.int("country_code"),
		})
		if r.err != nil {
			return nil, r.err
		}
	}
	for i, rec := range t[Merchants] {
		r := rowReader{entity: Merchants, index: i, rec: rec}
		d.Merchants = append(d.Merchants, Merchant{
			MerchantID: r.int("merchant_id"), MerchantName: r.str("merchant_name"),
			UserID: r.int("user_id"), CountryCode: r.int("country_code"),
		})
		if r.err != nil {
			return nil, r.err
		}
	}
	for i, rec := range t[Orders] {
		r := rowReader{entity: Orders, index: i, rec: rec}
		d.Orders = append(d.Orders, Order{
			OrderID: r.int("order_id"), UserID: r.int("user_id"), Status: r.str("status"),
			CreatedAt: r.str("created_at"),
		})
		if r.err != nil {
			return nil, r.err
		}
	}
	for i, rec := range t[Products] {
		r := rowReader{entity: Products, index: i, rec: rec}
		d.Products = append(d.Products, Product{
			ProductID: r.int("product_id"), MerchantID: r.int("merchant_id"), Name: r.str("name"),
			Price: r.int("price"), Status: r.str("status"), CreatedAt: r.str("created_at"),
		})
		if r.err != nil {
			return nil, r.err
		}
	}
	for i, rec := range t[OrderItems] {
		r := rowReader{entity: OrderItems, index: i, rec: rec}
		d.OrderItems = append(d.OrderItems, OrderItem{
			OrderID: r.int("order_id"), ProductID: r.int("product_id"), Quantity: r.int("quantity"),
		})
		if r.err != nil {
			return nil, r.err
		}
	}

	return d, nil
}

// rowReader reads typed columns out of a record and keeps the first error.
type rowReader struct {
	entity Entity
	index  int
	rec    Record
	err    error
}

func (r *rowReader) fail(column, reason string) {
	if r.err != nil {
		return
	}
	r.err = benchErrors.NewLoadError(benchErrors.CodeInvalidRow,
		fmt.Sprintf("%s row %d: column %s %s", r.entity, r.index+1, column, reason), nil).
		WithDetails(map[string]interface{}{"entity": string(r.entity), "row": r.index + 1, "column": column})
}

func (r *rowReader) int(column string) int64 {
	v, ok := r.rec[column]
	if !ok {
		r.fail(column, "is missing")
		return 0
	}
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			r.fail(column, fmt.Sprintf("is not an integer: %q", x))
		}
		return n
	}
	r.fail(column, fmt.Sprintf("has unsupported type %T", v))
	return 0
}

func (r *rowReader) str(column string) string {
	v, ok := r.rec[column]
	if !ok {
		r.fail(column, "is missing")
		return ""
	}
	switch v.(type) {
	case string, int64, int:
		return util.Text(v)
	}
	r.fail(column, fmt.Sprintf("has unsupported type %T", v))
	return ""
}
