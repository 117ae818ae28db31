package dataset

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	benchErrors "tradebench/errors"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

var continents = []string{"North America", "Europe", "Oceania", "Asia", "South America", "Africa"}

// GeneratorConfig controls the size and randomness of a synthetic dataset.
type GeneratorConfig struct {
	Countries int `yaml:"countries"`
	Users     int `yaml:"users"`
	Merchants int `yaml:"merchants"`
	Orders    int `yaml:"orders"`
	Products  int `yaml:"products"`
	MinPrice  int `yaml:"minPrice"`
	MaxPrice  int `yaml:"maxPrice"`
	MinAge    int `yaml:"minAge"`
	MaxAge    int `yaml:"maxAge"`
	// Seed for the faker; the same seed and config always produce the same
	// dataset. Zero seeds from crypto/rand.
	Seed int64 `yaml:"seed"`
	// Dates of birth and creation timestamps are relative to this instant
	Reference time.Time `yaml:"reference"`
}

// DefaultGeneratorConfig returns the default dataset size.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Countries: 100,
		Users:     200,
		Merchants: 50,
		Orders:    25,
		Products:  60,
		MinPrice:  10,
		MaxPrice:  100,
		MinAge:    18,
		MaxAge:    65,
		Seed:      1,
		Reference: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Validate checks that every table can be populated and its references
// resolved.
func (c GeneratorConfig) Validate() error {
	switch {
	case c.Countries <= 0 || c.Users <= 0 || c.Merchants <= 0 || c.Orders <= 0 || c.Products <= 0:
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "generator table sizes must be positive")
	case c.MinPrice <= 0 || c.MaxPrice < c.MinPrice:
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "generator price range is invalid")
	case c.MinAge < 0 || c.MaxAge < c.MinAge:
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "generator age range is invalid")
	}
	return nil
}

// Generator produces synthetic datasets. Each generator owns its faker, so
// two generators never share random state.
type Generator struct {
	cfg   GeneratorConfig
	faker *gofakeit.Faker
}

// NewGenerator creates a Generator from the given config.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Reference.IsZero() {
		cfg.Reference = DefaultGeneratorConfig().Reference
	}
	return &Generator{cfg: cfg, faker: gofakeit.New(cfg.Seed)}, nil
}

// Generate builds a referentially consistent dataset. Order items cover every
// (order, product) pair with a quantity between 1 and 5.
func (g *Generator) Generate() *Dataset {
	f := g.faker
	d := &Dataset{}

	for i := 1; i <= g.cfg.Countries; i++ {
		d.Countries = append(d.Countries, Country{
			CountryCode:   int64(i),
			Name:          f.Country(),
			ContinentName: f.RandomString(continents),
		})
	}

	for i := 1; i <= g.cfg.Users; i++ {
		d.Users = append(d.Users, User{
			UserID:      int64(i),
			FullName:    f.Name(),
			Email:       f.Email(),
			Gender:      f.RandomString([]string{"Male", "Female"}),
			DateOfBirth: g.dateOfBirth().Format(dateLayout),
			CountryCode: g.pick(g.cfg.Countries),
		})
	}

	for i := 1; i <= g.cfg.Merchants; i++ {
		d.Merchants = append(d.Merchants, Merchant{
			MerchantID:   int64(i),
			MerchantName: f.Company(),
			UserID:       g.pick(g.cfg.Users),
			CountryCode:  g.pick(g.cfg.Countries),
		})
	}

	for i := 1; i <= g.cfg.Orders; i++ {
		d.Orders = append(d.Orders, Order{
			OrderID:   int64(i),
			UserID:    g.pick(g.cfg.Users),
			Status:    f.RandomString([]string{StatusPending, StatusShipped, StatusDelivered}),
			CreatedAt: g.thisYear().Format(dateTimeLayout),
		})
	}

	for i := 1; i <= g.cfg.Products; i++ {
		d.Products = append(d.Products, Product{
			ProductID:  int64(i),
			MerchantID: g.pick(g.cfg.Merchants),
			Name:       f.Word(),
			Price:      int64(f.Number(g.cfg.MinPrice, g.cfg.MaxPrice)),
			Status:     f.RandomString([]string{"Available", "Out of Stock"}),
			CreatedAt:  g.thisYear().Format(dateTimeLayout),
		})
	}

	for o := 1; o <= g.cfg.Orders; o++ {
		for p := 1; p <= g.cfg.Products; p++ {
			d.OrderItems = append(d.OrderItems, OrderItem{
				OrderID:   int64(o),
				ProductID: int64(p),
				Quantity:  int64(f.Number(1, 5)),
			})
		}
	}

	return d
}

// pick returns an id in [1, n]
func (g *Generator) pick(n int) int64 {
	return int64(g.faker.Number(1, n))
}

func (g *Generator) dateOfBirth() time.Time {
	ref := g.cfg.Reference
	return g.faker.DateRange(ref.AddDate(-g.cfg.MaxAge, 0, 0), ref.AddDate(-g.cfg.MinAge, 0, 0))
}

func (g *Generator) thisYear() time.Time {
	ref := g.cfg.Reference
	start := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
	if !ref.After(start) {
		ref = start.AddDate(1, 0, 0)
	}
	return g.faker.DateRange(start, ref)
}
