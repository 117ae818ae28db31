package relational

import (
	"context"
	"fmt"

	zlog "github.com/rs/zerolog/log"

	"tradebench/dataset"
	dbutils "tradebench/dbUtils"
	benchErrors "tradebench/errors"
)

var tables = []string{
	`create table if not exists countries (
		country_code bigint not null,
		name varchar(255) not null,
		continent_name varchar(255) not null,
		primary key (country_code)
	)`,
	`create table if not exists users (
		user_id bigint not null,
		full_name varchar(255) not null,
		email varchar(255) not null,
		gender varchar(255) not null,
		date_of_birth varchar(255) not null,
		country_code bigint not null,
		primary key (user_id),
		foreign key (country_code) references countries(country_code)
	)`,
	`create table if not exists merchants (
		merchant_id bigint not null,
		merchant_name varchar(255) not null,
		user_id bigint not null,
		country_code bigint not null,
		primary key (merchant_id),
		foreign key (user_id) references users(user_id),
		foreign key (country_code) references countries(country_code)
	)`,
	`create table if not exists orders (
		order_id bigint not null,
		user_id bigint not null,
		status varchar(255) not null,
		created_at varchar(255) not null,
		primary key (order_id),
		foreign key (user_id) references users(user_id)
	)`,
	`create table if not exists products (
		product_id bigint not null,
		merchant_id bigint not null,
		name varchar(255) not null,
		price bigint not null,
		status varchar(255) not null,
		created_at varchar(255) not null,
		primary key (product_id),
		foreign key (merchant_id) references merchants(merchant_id)
	)`,
	`create table if not exists order_items (
		order_id bigint not null,
		product_id bigint not null,
		quantity bigint not null,
		primary key (order_id, product_id),
		foreign key (order_id) references orders(order_id),
		foreign key (product_id) references products(product_id)
	)`,
}

type index struct {
	name   string
	table  string
	column string
}

// order_items(order_id) is served by the primary key
var indexes = []index{
	{"idx_users_country_code", "users", "country_code"},
	{"idx_countries_continent_name", "countries", "continent_name"},
	{"idx_orders_user_id", "orders", "user_id"},
	{"idx_order_items_product_id", "order_items", "product_id"},
	{"idx_orders_status", "orders", "status"},
	{"idx_products_merchant_id", "products", "merchant_id"},
}

func (i index) ddl(d dbutils.Dialect) string {
	// MySQL has no "if not exists" for indexes; duplicates are reported as errors instead
	if d == dbutils.MySQL {
		return fmt.Sprintf("create index %s on %s(%s)", i.name, i.table, i.column)
	}
	return fmt.Sprintf("create index if not exists %s on %s(%s)", i.name, i.table, i.column)
}

func (r *Relational) ProvisionSchema(ctx context.Context) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	for _, stmt := range tables {
		if _, err := db.ExecContext(ctx, stmt); err != nil && !dbutils.IsDuplicateObject(err) {
			return benchErrors.NewSchemaError("create tables", err)
		}
	}

	r.log().Msg("Schema ready")
	return nil
}

func (r *Relational) ProvisionIndexes(ctx context.Context) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx.ddl(r.dialect)); err != nil && !dbutils.IsDuplicateObject(err) {
			return benchErrors.NewSchemaError("create index "+idx.name, err)
		}
	}

	if r.Analyze {
		if err := dbutils.Analyze(ctx, db, r.dialect, tableNames()); err != nil {
			zlog.Warn().Err(err).Msg("analyze failed")
		}
	}

	r.log().Int("indexes", len(indexes)).Msg("Indexes ready")
	return nil
}

// Reset drops the six tables, children first.
func (r *Relational) Reset(ctx context.Context) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	names := tableNames()
	for i := len(names) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, "drop table if exists "+names[i]); err != nil {
			return benchErrors.NewSchemaError("drop "+names[i], err)
		}
	}
	r.loadedDbSize = 0
	return nil
}

func tableNames() []string {
	names := make([]string, 0, len(dataset.Entities))
	for _, e := range dataset.Entities {
		names = append(names, string(e))
	}
	return names
}
