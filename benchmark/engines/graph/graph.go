// Package graph runs the benchmark on Neo4j. Entities become labelled nodes
// and foreign keys become relationships, so the queries are path patterns.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	engine "tradebench/benchmark/engines/abstract"
	benchErrors "tradebench/errors"
)

type Graph struct {
	URI       string `yaml:"uri"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	BatchSize int    `yaml:"batchSize"`

	driver  neo4j.DriverWithContext
	indexed bool
}

func New(configData []byte) (*Graph, error) {
	section := struct {
		Graph *Graph `yaml:"neo4j"`
	}{}
	if err := yaml.Unmarshal(configData, &section); err != nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "neo4j: "+err.Error())
	}
	if section.Graph == nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "missing neo4j section")
	}
	g := section.Graph
	return g, g.init()
}

// NewWithURI builds an engine without a config file.
func NewWithURI(uri, username, password string) (*Graph, error) {
	g := &Graph{URI: uri, Username: username, Password: password}
	return g, g.init()
}

func (g *Graph) init() error {
	if g.URI == "" {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "neo4j: missing uri")
	}
	if g.Database == "" {
		g.Database = "neo4j"
	}
	if g.BatchSize <= 0 {
		g.BatchSize = 1000
	}
	return nil
}

func (g *Graph) log() *zerolog.Event {
	return zlog.Info().Str("engine", "neo4j").Str("database", g.Database)
}

func (g *Graph) LoadPolicy() engine.LoadPolicy {
	return engine.BestEffort
}

func (g *Graph) Connect(ctx context.Context) error {
	if g.driver != nil {
		return nil
	}

	auth := neo4j.NoAuth()
	if g.Username != "" {
		auth = neo4j.BasicAuth(g.Username, g.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(g.URI, auth)
	if err != nil {
		return benchErrors.NewConnectionError("create neo4j driver", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return benchErrors.NewConnectionError("connect to neo4j "+g.URI, err)
	}

	g.driver = driver
	g.log().Msg("Connected")
	return nil
}

func (g *Graph) Disconnect(ctx context.Context) error {
	if g.driver == nil {
		return nil
	}
	err := g.driver.Close(ctx)
	g.driver = nil
	if err != nil {
		return benchErrors.NewConnectionError("close neo4j driver", err)
	}
	return nil
}

func (g *Graph) GetConfigs() map[string]string {
	return map[string]string{
		"database":  g.Database,
		"batchSize": strconv.Itoa(g.BatchSize),
	}
}

func (g *Graph) GetMetrics(ctx context.Context) map[string]string {
	metrics := map[string]string{"indexed": strconv.FormatBool(g.indexed)}
	res, err := g.read(ctx, "MATCH (n) RETURN count(n) AS nodes", nil)
	if err != nil || len(res.Records) == 0 {
		return metrics
	}
	if nodes, ok, _ := neo4j.GetRecordValue[int64](res.Records[0], "nodes"); ok {
		metrics["nodes"] = strconv.FormatInt(nodes, 10)
	}
	return metrics
}

func (g *Graph) conn() (neo4j.DriverWithContext, error) {
	if g.driver == nil {
		return nil, benchErrors.ErrNotConnected
	}
	return g.driver, nil
}

func (g *Graph) write(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	driver, err := g.conn()
	if err != nil {
		return nil, err
	}
	return neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.Database))
}

func (g *Graph) read(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	driver, err := g.conn()
	if err != nil {
		return nil, err
	}
	return neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.Database), neo4j.ExecuteQueryWithReadersRouting())
}

// ProvisionSchema has nothing to create: labels and relationship types come
// into existence with the first node or relationship that uses them.
func (g *Graph) ProvisionSchema(ctx context.Context) error {
	if _, err := g.conn(); err != nil {
		return err
	}
	g.log().Msg("Schema ready")
	return nil
}

type schemaObject struct {
	name   string
	create string
	drop   string
}

func constraint(name, label, property string) schemaObject {
	return schemaObject{
		name:   name,
		create: fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE", name, label, property),
		drop:   fmt.Sprintf("DROP CONSTRAINT %s IF EXISTS", name),
	}
}

func index(name, label, property string) schemaObject {
	return schemaObject{
		name:   name,
		create: fmt.Sprintf("CREATE INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.%s)", name, label, property),
		drop:   fmt.Sprintf("DROP INDEX %s IF EXISTS", name),
	}
}

var schemaObjects = []schemaObject{
	constraint("country_code_key", "Country", "country_code"),
	constraint("user_id_key", "User", "user_id"),
	constraint("merchant_id_key", "Merchant", "merchant_id"),
	constraint("order_id_key", "Order", "order_id"),
	constraint("product_id_key", "Product", "product_id"),
	index("country_name_idx", "Country", "name"),
	index("country_continent_idx", "Country", "continent_name"),
	index("user_email_idx", "User", "email"),
	index("merchant_name_idx", "Merchant", "merchant_name"),
	index("order_status_idx", "Order", "status"),
	index("order_created_at_idx", "Order", "created_at"),
	index("product_price_idx", "Product", "price"),
	index("product_status_idx", "Product", "status"),
}

func (g *Graph) ProvisionIndexes(ctx context.Context) error {
	for _, obj := range schemaObjects {
		if _, err := g.write(ctx, obj.create, nil); err != nil {
			return schemaError("create "+obj.name, err)
		}
	}
	// index population is asynchronous
	if _, err := g.write(ctx, "CALL db.awaitIndexes(300)", nil); err != nil {
		return schemaError("await indexes", err)
	}

	g.indexed = true
	g.log().Int("indexes", len(schemaObjects)).Msg("Indexes ready")
	return nil
}

// Reset deletes every node with its relationships, then the constraints and
// indexes ProvisionIndexes creates.
func (g *Graph) Reset(ctx context.Context) error {
	if _, err := g.write(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		return schemaError("delete graph", err)
	}
	for _, obj := range schemaObjects {
		if _, err := g.write(ctx, obj.drop, nil); err != nil {
			return schemaError("drop "+obj.name, err)
		}
	}
	g.indexed = false
	return nil
}

func schemaError(msg string, err error) error {
	if errors.Is(err, benchErrors.ErrNotConnected) {
		return err
	}
	return benchErrors.NewSchemaError(msg, err)
}
