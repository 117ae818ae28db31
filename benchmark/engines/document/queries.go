package document

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	engine "tradebench/benchmark/engines/abstract"
	benchErrors "tradebench/errors"
)

// MongoDB answers queries on missing collections with no documents, so
// RunQuery never reports NOT_FOUND.
func (d *Document) RunQuery(ctx context.Context, q engine.Query, params engine.Params) (*engine.ResultSet, error) {
	b, err := q.Bind(params)
	if err != nil {
		return nil, err
	}
	db, err := d.db()
	if err != nil {
		return nil, err
	}

	rs := engine.NewResultSet(q)
	switch q {
	case engine.Q1:
		err = q1(ctx, db, rs, b)
	case engine.Q2:
		err = aggregate(ctx, db.Collection("orders"), q2Pipeline(b), func(r shippedRow) {
			rs.ShippedLines = append(rs.ShippedLines, engine.ShippedLine(r))
		})
	case engine.Q3:
		err = aggregate(ctx, db.Collection("merchants"), q3Pipeline(), func(r revenueRow) {
			rs.MerchantRevenues = append(rs.MerchantRevenues, engine.MerchantRevenue(r))
		})
	case engine.Q4:
		err = aggregate(ctx, db.Collection("users"), q4Pipeline(b), func(r orderValueRow) {
			rs.UserOrderValues = append(rs.UserOrderValues, engine.UserOrderValue(r))
		})
	}
	if err != nil {
		return nil, benchErrors.NewQueryError(benchErrors.CodeBackendFailure, q.String(), err)
	}
	return rs, nil
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline, emit func(T)) error {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row T
		if err := cursor.Decode(&row); err != nil {
			return err
		}
		emit(row)
	}
	return cursor.Err()
}

type contactRow struct {
	FullName string `bson:"full_name"`
	Email    string `bson:"email"`
}

type shippedRow struct {
	OrderID     int64  `bson:"order_id"`
	UserName    string `bson:"user_name"`
	UserEmail   string `bson:"user_email"`
	ProductName string `bson:"product_name"`
	Quantity    int64  `bson:"quantity"`
	Price       int64  `bson:"price"`
	Status      string `bson:"status"`
	CreatedAt   string `bson:"created_at"`
}

type revenueRow struct {
	MerchantID   int64  `bson:"merchant_id"`
	MerchantName string `bson:"merchant_name"`
	TotalRevenue int64  `bson:"total_revenue"`
}

type orderValueRow struct {
	UserID        int64   `bson:"user_id"`
	FullName      string  `bson:"full_name"`
	AvgOrderValue float64 `bson:"avg_order_value"`
}

// q1 resolves the continent's country codes first, then matches users on them.
func q1(ctx context.Context, db *mongo.Database, rs *engine.ResultSet, b engine.Bound) error {
	codes, err := db.Collection("countries").Distinct(ctx, "country_code", bson.D{{Key: "continent_name", Value: b.Continent}})
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return nil
	}

	filter := bson.D{{Key: "country_code", Value: bson.D{{Key: "$in", Value: codes}}}}
	return find(ctx, db.Collection("users"), filter, func(r contactRow) {
		rs.UserContacts = append(rs.UserContacts, engine.UserContact(r))
	})
}

func find[T any](ctx context.Context, coll *mongo.Collection, filter bson.D, emit func(T)) error {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row T
		if err := cursor.Decode(&row); err != nil {
			return err
		}
		emit(row)
	}
	return cursor.Err()
}

func lookup(from, localField, foreignField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: foreignField},
		{Key: "as", Value: as},
	}}}
}

func unwind(path string, preserveEmpty bool) bson.D {
	return bson.D{{Key: "$unwind", Value: bson.D{
		{Key: "path", Value: path},
		{Key: "preserveNullAndEmptyArrays", Value: preserveEmpty},
	}}}
}

func q2Pipeline(b engine.Bound) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: b.Status}}}},
		lookup("users", "user_id", "user_id", "user"),
		unwind("$user", false),
		unwind("$products_info", false),
		lookup("products", "products_info.product_id", "product_id", "product"),
		unwind("$product", false),
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "order_id", Value: 1},
			{Key: "user_name", Value: "$user.full_name"},
			{Key: "user_email", Value: "$user.email"},
			{Key: "product_name", Value: "$product.name"},
			{Key: "quantity", Value: "$products_info.quantity"},
			{Key: "price", Value: "$product.price"},
			{Key: "status", Value: 1},
			{Key: "created_at", Value: 1},
		}}},
	}
}

// q3Pipeline keeps merchants without products or sales. Each product's
// orders carry every line of the order, so only the lines of that product
// are summed.
func q3Pipeline() mongo.Pipeline {
	lineQuantities := bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: "$$o.products_info"},
			{Key: "as", Value: "pi"},
			{Key: "cond", Value: bson.D{{Key: "$eq", Value: bson.A{"$$pi.product_id", "$product.product_id"}}}},
		}}}},
		{Key: "as", Value: "pi"},
		{Key: "in", Value: "$$pi.quantity"},
	}}}
	soldQuantity := bson.D{{Key: "$sum", Value: bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: "$orders"},
		{Key: "as", Value: "o"},
		{Key: "in", Value: bson.D{{Key: "$sum", Value: lineQuantities}}},
	}}}}}

	return mongo.Pipeline{
		lookup("products", "merchant_id", "merchant_id", "product"),
		unwind("$product", true),
		lookup("orders", "product.product_id", "products_info.product_id", "orders"),
		{{Key: "$project", Value: bson.D{
			{Key: "merchant_id", Value: 1},
			{Key: "merchant_name", Value: 1},
			{Key: "revenue", Value: bson.D{{Key: "$multiply", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$product.price", 0}}},
				soldQuantity,
			}}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "merchant_id", Value: "$merchant_id"}, {Key: "merchant_name", Value: "$merchant_name"}}},
			{Key: "total_revenue", Value: bson.D{{Key: "$sum", Value: "$revenue"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "merchant_id", Value: "$_id.merchant_id"},
			{Key: "merchant_name", Value: "$_id.merchant_name"},
			{Key: "total_revenue", Value: 1},
		}}},
	}
}

// q4Pipeline prices the lines of each user's qualifying orders in a
// correlated lookup; users without any get 0.
func q4Pipeline(b engine.Bound) mongo.Pipeline {
	orderLines := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$user_id", "$$uid"}}},
			bson.D{{Key: "$ne", Value: bson.A{"$status", b.ExcludedStatus}}},
		}}}}}}},
		unwind("$products_info", false),
		lookup("products", "products_info.product_id", "product_id", "product"),
		unwind("$product", false),
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "value", Value: bson.D{{Key: "$multiply", Value: bson.A{"$product.price", "$products_info.quantity"}}}},
		}}},
	}

	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "orders"},
			{Key: "let", Value: bson.D{{Key: "uid", Value: "$user_id"}}},
			{Key: "pipeline", Value: orderLines},
			{Key: "as", Value: "lines"},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "user_id", Value: 1},
			{Key: "full_name", Value: 1},
			{Key: "avg_order_value", Value: bson.D{{Key: "$ifNull", Value: bson.A{bson.D{{Key: "$avg", Value: "$lines.value"}}, 0.0}}}},
		}}},
	}
}
