// Package document runs the benchmark on MongoDB. Order items are embedded
// into their order as a products_info array, so the document model has five
// collections instead of six tables.
package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gopkg.in/yaml.v3"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

// Collections, in load order.
var collections = []string{"countries", "users", "merchants", "orders", "products"}

type Document struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`

	client  *mongo.Client
	indexed bool
}

func New(configData []byte) (*Document, error) {
	section := struct {
		Document *Document `yaml:"mongodb"`
	}{}
	if err := yaml.Unmarshal(configData, &section); err != nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "mongodb: "+err.Error())
	}
	if section.Document == nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "missing mongodb section")
	}
	d := section.Document
	return d, d.init()
}

// NewWithURI builds an engine without a config file.
func NewWithURI(uri string, database string) (*Document, error) {
	d := &Document{URI: uri, Database: database}
	return d, d.init()
}

func (d *Document) init() error {
	if d.URI == "" {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "mongodb: missing uri")
	}
	if d.Database == "" {
		d.Database = "trade"
	}
	return nil
}

func (d *Document) log() *zerolog.Event {
	return zlog.Info().Str("engine", "mongodb").Str("database", d.Database)
}

func (d *Document) LoadPolicy() engine.LoadPolicy {
	return engine.BestEffort
}

func (d *Document) Connect(ctx context.Context) error {
	if d.client != nil {
		return nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(d.URI))
	if err != nil {
		return benchErrors.NewConnectionError("connect to mongodb", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return benchErrors.NewConnectionError("ping mongodb", err)
	}

	d.client = client
	d.log().Msg("Connected")
	return nil
}

func (d *Document) Disconnect(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	err := d.client.Disconnect(ctx)
	d.client = nil
	if err != nil {
		return benchErrors.NewConnectionError("disconnect from mongodb", err)
	}
	return nil
}

func (d *Document) GetConfigs() map[string]string {
	return map[string]string{"database": d.Database}
}

func (d *Document) GetMetrics(ctx context.Context) map[string]string {
	metrics := map[string]string{"indexed": strconv.FormatBool(d.indexed)}
	db, err := d.db()
	if err != nil {
		return metrics
	}
	var stats bson.M
	if err := db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats); err != nil {
		zlog.Warn().Err(err).Msg("Could not read dbStats")
		return metrics
	}
	metrics["dataSize"] = fmt.Sprint(stats["dataSize"])
	metrics["indexSize"] = fmt.Sprint(stats["indexSize"])
	return metrics
}

func (d *Document) db() (*mongo.Database, error) {
	if d.client == nil {
		return nil, benchErrors.ErrNotConnected
	}
	return d.client.Database(d.Database), nil
}

// ProvisionSchema creates the collections that do not exist yet.
func (d *Document) ProvisionSchema(ctx context.Context) error {
	db, err := d.db()
	if err != nil {
		return err
	}

	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return benchErrors.NewSchemaError("list collections", err)
	}
	present := map[string]bool{}
	for _, name := range existing {
		present[name] = true
	}

	for _, name := range collections {
		if present[name] {
			continue
		}
		if err := db.CreateCollection(ctx, name); err != nil && !isNamespaceExists(err) {
			return benchErrors.NewSchemaError("create collection "+name, err)
		}
	}
	d.log().Msg("Schema ready")
	return nil
}

// NamespaceExists
func isNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == 48
}

var indexes = map[string][]mongo.IndexModel{
	"countries": {
		{Keys: bson.D{{Key: "continent_name", Value: 1}, {Key: "country_code", Value: 1}}},
		{Keys: bson.D{{Key: "country_code", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	"users": {
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "country_code", Value: 1}}},
	},
	"merchants": {
		{Keys: bson.D{{Key: "merchant_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	"orders": {
		{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "products_info.product_id", Value: 1}}},
	},
	"products": {
		{Keys: bson.D{{Key: "product_id", Value: -1}, {Key: "merchant_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "merchant_id", Value: 1}}},
	},
}

// ProvisionIndexes creates the indexes; creating an existing index with the
// same keys and options is a no-op in MongoDB.
func (d *Document) ProvisionIndexes(ctx context.Context) error {
	db, err := d.db()
	if err != nil {
		return err
	}

	total := 0
	for _, name := range collections {
		names, err := db.Collection(name).Indexes().CreateMany(ctx, indexes[name])
		if err != nil {
			return benchErrors.NewSchemaError("create indexes on "+name, err)
		}
		total += len(names)
	}

	d.indexed = true
	d.log().Int("indexes", total).Msg("Indexes ready")
	return nil
}

// Reset drops the database.
func (d *Document) Reset(ctx context.Context) error {
	db, err := d.db()
	if err != nil {
		return err
	}
	if err := db.Drop(ctx); err != nil {
		return benchErrors.NewSchemaError("drop database "+d.Database, err)
	}
	d.indexed = false
	return nil
}

// LoadDataset inserts each collection in order. Order items are folded into
// their order; items of a missing order cannot be stored and are skipped.
func (d *Document) LoadDataset(ctx context.Context, ds *dataset.Dataset) error {
	db, err := d.db()
	if err != nil {
		return err
	}

	for _, v := range dataset.CheckReferences(ds) {
		zlog.Warn().Str("engine", "mongodb").Str("violation", v.String()).Msg("Dangling reference")
	}

	docs := toDocuments(ds)
	for _, name := range collections {
		if len(docs[name]) == 0 {
			continue
		}
		if _, err := db.Collection(name).InsertMany(ctx, docs[name]); err != nil {
			return benchErrors.NewLoadError(benchErrors.CodeWriteFailed, "insert into "+name, err)
		}
		d.log().Str("collection", name).Int("documents", len(docs[name])).Msg("Loaded")
	}
	return nil
}

func toDocuments(ds *dataset.Dataset) map[string][]interface{} {
	docs := map[string][]interface{}{}

	for _, c := range ds.Countries {
		docs["countries"] = append(docs["countries"], countryDoc{c.CountryCode, c.Name, c.ContinentName})
	}
	for _, u := range ds.Users {
		docs["users"] = append(docs["users"], userDoc{u.UserID, u.FullName, u.Email, u.Gender, u.DateOfBirth, u.CountryCode})
	}
	for _, m := range ds.Merchants {
		docs["merchants"] = append(docs["merchants"], merchantDoc{m.MerchantID, m.MerchantName, m.UserID, m.CountryCode})
	}
	for _, p := range ds.Products {
		docs["products"] = append(docs["products"], productDoc{p.ProductID, p.MerchantID, p.Name, p.Price, p.Status, p.CreatedAt})
	}

	items := map[int64][]productInfo{}
	orders := map[int64]bool{}
	for _, o := range ds.Orders {
		orders[o.OrderID] = true
	}
	for _, oi := range ds.OrderItems {
		if !orders[oi.OrderID] {
			zlog.Warn().Str("engine", "mongodb").Int64("order_id", oi.OrderID).Int64("product_id", oi.ProductID).
				Msg("Skipping order item of a missing order")
			continue
		}
		items[oi.OrderID] = append(items[oi.OrderID], productInfo{oi.ProductID, oi.Quantity})
	}
	for _, o := range ds.Orders {
		info := items[o.OrderID]
		if info == nil {
			info = []productInfo{}
		}
		docs["orders"] = append(docs["orders"], orderDoc{o.OrderID, o.UserID, o.Status, o.CreatedAt, info})
	}

	return docs
}

type countryDoc struct {
	CountryCode   int64  `bson:"country_code"`
	Name          string `bson:"name"`
	ContinentName string `bson:"continent_name"`
}

type userDoc struct {
	UserID      int64  `bson:"user_id"`
	FullName    string `bson:"full_name"`
	Email       string `bson:"email"`
	Gender      string `bson:"gender"`
	DateOfBirth string `bson:"date_of_birth"`
	CountryCode int64  `bson:"country_code"`
}

type merchantDoc struct {
	MerchantID   int64  `bson:"merchant_id"`
	MerchantName string `bson:"merchant_name"`
	UserID       int64  `bson:"user_id"`
	CountryCode  int64  `bson:"country_code"`
}

type productDoc struct {
	ProductID  int64  `bson:"product_id"`
	MerchantID int64  `bson:"merchant_id"`
	Name       string `bson:"name"`
	Price      int64  `bson:"price"`
	Status     string `bson:"status"`
	CreatedAt  string `bson:"created_at"`
}

type productInfo struct {
	ProductID int64 `bson:"product_id"`
	Quantity  int64 `bson:"quantity"`
}

type orderDoc struct {
	OrderID      int64         `bson:"order_id"`
	UserID       int64         `bson:"user_id"`
	Status       string        `bson:"status"`
	CreatedAt    string        `bson:"created_at"`
	ProductsInfo []productInfo `bson:"products_info"`
}
