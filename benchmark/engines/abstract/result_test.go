package engine

import (
	"testing"

	"tradebench/dataset"
)

func TestResultSetEqualIgnoresOrder(t *testing.T) {
	a := &ResultSet{Query: Q1, UserContacts: []UserContact{{"B", "b@x"}, {"A", "a@x"}}}
	b := &ResultSet{Query: Q1, UserContacts: []UserContact{{"A", "a@x"}, {"B", "b@x"}}}

	if !a.Equal(b) {
		t.Error("sets with the same rows in different order should be equal")
	}
	if a.UserContacts[0].FullName != "B" {
		t.Error("Equal must not reorder its receiver")
	}

	c := &ResultSet{Query: Q1, UserContacts: []UserContact{{"A", "a@x"}, {"C", "c@x"}}}
	if a.Equal(c) {
		t.Error("different rows compared equal")
	}
	if a.Equal(&ResultSet{Query: Q2}) {
		t.Error("different queries compared equal")
	}
}

// Rows that tie on their leading columns must still compare equal in any
// order.
func TestResultSetEqualFullRowOrder(t *testing.T) {
	cheap := ShippedLine{OrderID: 1, UserName: "A", ProductName: "Pen", Quantity: 2, Price: 10, Status: "Shipped"}
	dear := cheap
	dear.Price = 20
	a := &ResultSet{Query: Q2, ShippedLines: []ShippedLine{cheap, dear}}
	b := &ResultSet{Query: Q2, ShippedLines: []ShippedLine{dear, cheap}}
	if !a.Equal(b) {
		t.Error("Q2 rows differing only in price compared unequal across orders")
	}

	x := MerchantRevenue{MerchantID: 1, MerchantName: "Shop", TotalRevenue: 5}
	y := MerchantRevenue{MerchantID: 1, MerchantName: "Shop", TotalRevenue: 9}
	c := &ResultSet{Query: Q3, MerchantRevenues: []MerchantRevenue{x, y}}
	d := &ResultSet{Query: Q3, MerchantRevenues: []MerchantRevenue{y, x}}
	if !c.Equal(d) {
		t.Error("Q3 rows differing only in revenue compared unequal across orders")
	}

	u := UserOrderValue{UserID: 1, FullName: "A", AvgOrderValue: 1}
	v := UserOrderValue{UserID: 1, FullName: "B", AvgOrderValue: 2}
	if !(&ResultSet{Query: Q4, UserOrderValues: []UserOrderValue{u, v}}).Equal(&ResultSet{Query: Q4, UserOrderValues: []UserOrderValue{v, u}}) {
		t.Error("Q4 rows sharing a user id compared unequal across orders")
	}
}

func TestResultSetEqualFloatTolerance(t *testing.T) {
	a := &ResultSet{Query: Q4, UserOrderValues: []UserOrderValue{{1, "A", 65}}}
	b := &ResultSet{Query: Q4, UserOrderValues: []UserOrderValue{{1, "A", 65.0000000000001}}}
	c := &ResultSet{Query: Q4, UserOrderValues: []UserOrderValue{{1, "A", 65.01}}}

	if !a.Equal(b) {
		t.Error("values within tolerance should be equal")
	}
	if a.Equal(c) {
		t.Error("values outside tolerance should differ")
	}
}

func TestResultSetLen(t *testing.T) {
	var nilSet *ResultSet
	if nilSet.Len() != 0 {
		t.Error("nil set should have no rows")
	}
	rs := &ResultSet{Query: Q3, MerchantRevenues: make([]MerchantRevenue, 3)}
	if rs.Len() != 3 {
		t.Errorf("Len = %d, want 3", rs.Len())
	}
}

func TestEvaluateFixture(t *testing.T) {
	ds := dataset.Fixture()

	q1, err := Evaluate(Q1, nil, ds)
	if err != nil {
		t.Fatal(err)
	}
	wantQ1 := &ResultSet{Query: Q1, UserContacts: []UserContact{
		{"John Doe", "john@example.com"},
		{"Bob Johnson", "bob@example.com"},
		{"Alice Brown", "alice@example.com"},
	}}
	if !q1.Equal(wantQ1) {
		t.Errorf("Q1 = %+v", q1.UserContacts)
	}

	q2, err := Evaluate(Q2, nil, ds)
	if err != nil {
		t.Fatal(err)
	}
	if q2.Len() != 5 {
		t.Errorf("Q2 returned %d lines, want 5", q2.Len())
	}
	for _, l := range q2.ShippedLines {
		if l.Status != "Shipped" {
			t.Errorf("Q2 returned a %s order", l.Status)
		}
	}

	q3, err := Evaluate(Q3, nil, ds)
	if err != nil {
		t.Fatal(err)
	}
	revenue := map[int64]int64{}
	for _, m := range q3.MerchantRevenues {
		revenue[m.MerchantID] = m.TotalRevenue
	}
	if len(revenue) != 10 || revenue[1] != 250 || revenue[9] != 175 || revenue[6] != 800 {
		t.Errorf("Q3 = %v", revenue)
	}

	q4, err := Evaluate(Q4, nil, ds)
	if err != nil {
		t.Fatal(err)
	}
	avg := map[int64]float64{}
	for _, u := range q4.UserOrderValues {
		avg[u.UserID] = u.AvgOrderValue
	}
	want := map[int64]float64{1: 65, 2: 0, 3: 200, 4: 20, 5: 1000, 6: 0, 7: 45, 8: 75, 9: 135, 10: 0}
	for id, v := range want {
		if avg[id] != v {
			t.Errorf("Q4 user %d = %v, want %v", id, avg[id], v)
		}
	}
}

func TestEvaluateMiniFixture(t *testing.T) {
	ds := dataset.MiniFixture()

	q3, err := Evaluate(Q3, nil, ds)
	if err != nil {
		t.Fatal(err)
	}
	if q3.Len() != 1 || q3.MerchantRevenues[0].TotalRevenue != 100 {
		t.Errorf("Q3 = %+v, want revenue 100", q3.MerchantRevenues)
	}

	q4, err := Evaluate(Q4, Params{ParamExcludedStatus: "Shipped"}, ds)
	if err != nil {
		t.Fatal(err)
	}
	if q4.Len() != 1 || q4.UserOrderValues[0].AvgOrderValue != 0 {
		t.Errorf("Q4 = %+v, want 0 when the only order is excluded", q4.UserOrderValues)
	}
}
