package dataset

import "testing"

func TestCheckReferences(t *testing.T) {
	d := MiniFixture()
	d.Users = append(d.Users, User{UserID: 2, FullName: "Lost", CountryCode: 42})
	d.OrderItems = append(d.OrderItems, OrderItem{OrderID: 7, ProductID: 1, Quantity: 1})
	d.Products = append(d.Products, Product{ProductID: 2, MerchantID: 9, Price: 10})

	got := CheckReferences(d)
	want := []Violation{
		{Entity: Users, Key: "2", Column: "country_code", Missing: 42},
		{Entity: Products, Key: "2", Column: "merchant_id", Missing: 9},
		{Entity: OrderItems, Key: "7/1", Column: "order_id", Missing: 7},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d violations %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("violation %d = %v, want %v", i, got[i], want[i])
		}
	}
	if got[0].String() != "users 2: country_code=42 does not exist" {
		t.Errorf("unexpected String(): %q", got[0].String())
	}
}
