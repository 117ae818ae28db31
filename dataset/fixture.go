package dataset

// Fixture returns the canonical sample dataset: ten rows in every table but
// order_items, which has twelve. It is small enough to check query answers
// by hand.
func Fixture() *Dataset {
	return &Dataset{
		Countries: []Country{
			{1, "United States", "North America"},
			{2, "United Kingdom", "Europe"},
			{3, "Canada", "North America"},
			{4, "Germany", "Europe"},
			{5, "Australia", "Oceania"},
			{6, "Japan", "Asia"},
			{7, "Brazil", "South America"},
			{8, "South Africa", "Africa"},
			{9, "France", "Europe"},
			{10, "China", "Asia"},
		},
		Users: []User{
			{1, "John Doe", "john@example.com", "Male", "1990-01-01", 1},
			{2, "Jane Smith", "jane@example.com", "Female", "1995-05-15", 2},
			{3, "Bob Johnson", "bob@example.com", "Male", "1988-08-20", 1},
			{4, "Alice Brown", "alice@example.com", "Female", "1992-03-12", 3},
			{5, "Carlos Rodriguez", "carlos@example.com", "Male", "1985-11-30", 7},
			{6, "Mia Kim", "mia@example.com", "Female", "1998-07-25", 6},
			{7, "Daniel Chen", "daniel@example.com", "Male", "1993-04-18", 5},
			{8, "Sophie Müller", "sophie@example.com", "Female", "1991-09-05", 4},
			{9, "David Lee", "david@example.com", "Male", "1994-06-08", 10},
			{10, "Sophia Wang", "sophia@example.com", "Female", "1997-12-15", 10},
		},
		Merchants: []Merchant{
			{1, "XYZ Mart", 1, 1},
			{2, "ABC Store", 2, 2},
			{3, "SuperGoods", 3, 4},
			{4, "Epic Deals", 4, 3},
			{5, "Tech Haven", 5, 5},
			{6, "Global Mart", 6, 6},
			{7, "Samba Shop", 7, 7},
			{8, "African Treasures", 8, 8},
			{9, "Fashion Trends", 9, 9},
			{10, "Electro Haven", 10, 10},
		},
		Orders: []Order{
			{1, 1, StatusShipped, "2023-01-05"},
			{2, 2, StatusPending, "2023-02-10"},
			{3, 3, StatusDelivered, "2023-03-20"},
			{4, 4, StatusProcessing, "2023-04-15"},
			{5, 5, StatusShipped, "2023-05-02"},
			{6, 6, StatusPending, "2023-06-12"},
			{7, 7, StatusDelivered, "2023-07-25"},
			{8, 8, StatusProcessing, "2023-08-18"},
			{9, 9, StatusShipped, "2023-09-02"},
			{10, 10, StatusPending, "2023-10-18"},
		},
		Products: []Product{
			{1, 1, "Product A", 50, "Available", "2023-01-01"},
			{2, 2, "Product B", 30, "Out of Stock", "2023-02-01"},
			{3, 3, "Gadget X", 100, "Available", "2023-03-10"},
			{4, 4, "Widget Y", 20, "Available", "2023-04-05"},
			{5, 5, "Smartphone Z", 500, "Available", "2023-05-15"},
			{6, 6, "Laptop Pro", 800, "Out of Stock", "2023-06-20"},
			{7, 7, "Samba Dance CD", 15, "Available", "2023-07-02"},
			{8, 8, "African Artisan Craft", 75, "Available", "2023-08-10"},
			{9, 9, "Stylish Shirt", 35, "Available", "2023-09-10"},
			{10, 10, "Smartwatch Pro", 200, "Out of Stock", "2023-10-05"},
		},
		OrderItems: []OrderItem{
			{1, 1, 2},
			{1, 2, 1},
			{2, 1, 3},
			{3, 3, 2},
			{4, 4, 1},
			{5, 5, 2},
			{6, 6, 1},
			{7, 7, 3},
			{8, 8, 1},
			{9, 9, 2},
			{9, 10, 1},
			{10, 9, 3},
		},
	}
}

// MiniFixture returns a single-sale dataset: one country in North America,
// one user who owns one merchant selling one product at 50, and one shipped
// order buying two of it.
func MiniFixture() *Dataset {
	return &Dataset{
		Countries:  []Country{{1, "United States", "North America"}},
		Users:      []User{{1, "John Doe", "john@example.com", "Male", "1990-01-01", 1}},
		Merchants:  []Merchant{{1, "XYZ Mart", 1, 1}},
		Orders:     []Order{{1, 1, StatusShipped, "2023-01-05"}},
		Products:   []Product{{1, 1, "Product A", 50, "Available", "2023-01-01"}},
		OrderItems: []OrderItem{{1, 1, 2}},
	}
}
