package engine

import (
	"math"
	"sort"
)

const floatTolerance = 1e-9

// Row types, one per query.

type UserContact struct {
	FullName string
	Email    string
}

type ShippedLine struct {
	OrderID     int64
	UserName    string
	UserEmail   string
	ProductName string
	Quantity    int64
	Price       int64
	Status      string
	CreatedAt   string
}

type MerchantRevenue struct {
	MerchantID   int64
	MerchantName string
	TotalRevenue int64
}

type UserOrderValue struct {
	UserID        int64
	FullName      string
	AvgOrderValue float64
}

// ResultSet holds the rows of one query. Only the slice matching Query is
// populated.
type ResultSet struct {
	Query            Query
	UserContacts     []UserContact
	ShippedLines     []ShippedLine
	MerchantRevenues []MerchantRevenue
	UserOrderValues  []UserOrderValue
}

// NewResultSet returns an empty result set for q.
func NewResultSet(q Query) *ResultSet {
	return &ResultSet{Query: q}
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	switch r.Query {
	case Q1:
		return len(r.UserContacts)
	case Q2:
		return len(r.ShippedLines)
	case Q3:
		return len(r.MerchantRevenues)
	case Q4:
		return len(r.UserOrderValues)
	}
	return 0
}

// Sort puts the rows into a canonical order so results from different
// engines can be compared.
func (r *ResultSet) Sort() {
	sort.SliceStable(r.UserContacts, func(i, j int) bool {
		a, b := r.UserContacts[i], r.UserContacts[j]
		if a.FullName != b.FullName {
			return a.FullName < b.FullName
		}
		return a.Email < b.Email
	})
	sort.SliceStable(r.ShippedLines, func(i, j int) bool {
		a, b := r.ShippedLines[i], r.ShippedLines[j]
		switch {
		case a.OrderID != b.OrderID:
			return a.OrderID < b.OrderID
		case a.ProductName != b.ProductName:
			return a.ProductName < b.ProductName
		case a.Quantity != b.Quantity:
			return a.Quantity < b.Quantity
		case a.Price != b.Price:
			return a.Price < b.Price
		case a.UserName != b.UserName:
			return a.UserName < b.UserName
		case a.UserEmail != b.UserEmail:
			return a.UserEmail < b.UserEmail
		case a.Status != b.Status:
			return a.Status < b.Status
		}
		return a.CreatedAt < b.CreatedAt
	})
	sort.SliceStable(r.MerchantRevenues, func(i, j int) bool {
		a, b := r.MerchantRevenues[i], r.MerchantRevenues[j]
		switch {
		case a.MerchantID != b.MerchantID:
			return a.MerchantID < b.MerchantID
		case a.MerchantName != b.MerchantName:
			return a.MerchantName < b.MerchantName
		}
		return a.TotalRevenue < b.TotalRevenue
	})
	sort.SliceStable(r.UserOrderValues, func(i, j int) bool {
		a, b := r.UserOrderValues[i], r.UserOrderValues[j]
		switch {
		case a.UserID != b.UserID:
			return a.UserID < b.UserID
		case a.FullName != b.FullName:
			return a.FullName < b.FullName
		}
		return a.AvgOrderValue < b.AvgOrderValue
	})
}

// Equal compares two result sets regardless of row order. Floats match
// within a small tolerance. Neither set is modified.
func (r *ResultSet) Equal(other *ResultSet) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Query != other.Query || r.Len() != other.Len() {
		return false
	}

	a, b := r.clone(), other.clone()
	a.Sort()
	b.Sort()

	for i := range a.UserContacts {
		if a.UserContacts[i] != b.UserContacts[i] {
			return false
		}
	}
	for i := range a.ShippedLines {
		if a.ShippedLines[i] != b.ShippedLines[i] {
			return false
		}
	}
	for i := range a.MerchantRevenues {
		if a.MerchantRevenues[i] != b.MerchantRevenues[i] {
			return false
		}
	}
	for i := range a.UserOrderValues {
		x, y := a.UserOrderValues[i], b.UserOrderValues[i]
		if x.UserID != y.UserID || x.FullName != y.FullName ||
			math.Abs(x.AvgOrderValue-y.AvgOrderValue) > floatTolerance {
			return false
		}
	}
	return true
}

func (r *ResultSet) clone() *ResultSet {
	return &ResultSet{
		Query:            r.Query,
		UserContacts:     append([]UserContact(nil), r.UserContacts...),
		ShippedLines:     append([]ShippedLine(nil), r.ShippedLines...),
		MerchantRevenues: append([]MerchantRevenue(nil), r.MerchantRevenues...),
		UserOrderValues:  append([]UserOrderValue(nil), r.UserOrderValues...),
	}
}
