package dataset

import (
	"context"
	"strings"

	zlog "github.com/rs/zerolog/log"

	benchErrors "tradebench/errors"
)

// Dataset sources accepted in the config.
const (
	SourceFixture  = "fixture"
	SourceGenerate = "generate"
	SourceDir      = "dir"
	SourceS3       = "s3"
)

var Sources = []string{SourceFixture, SourceGenerate, SourceDir, SourceS3}

// Config selects where a run's dataset comes from. An empty source means the
// fixture.
type Config struct {
	Source    string          `yaml:"source"`
	Dir       string          `yaml:"dir"`
	S3        S3Config        `yaml:"s3"`
	Generator GeneratorConfig `yaml:"generator"`
}

// DefaultConfig returns a config whose generator section holds the default
// sizes, so a partial generator section in YAML only overrides what it names.
func DefaultConfig() Config {
	return Config{Source: SourceFixture, Generator: DefaultGeneratorConfig()}
}

// Load builds the dataset described by cfg.
func Load(ctx context.Context, cfg Config) (*Dataset, error) {
	var src Source
	switch cfg.Source {
	case "", SourceFixture:
		return Fixture(), nil
	case SourceGenerate:
		g, err := NewGenerator(cfg.Generator)
		if err != nil {
			return nil, err
		}
		return g.Generate(), nil
	case SourceDir:
		if cfg.Dir == "" {
			return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "dataset: source dir needs a dir")
		}
		src = DirSource{Dir: cfg.Dir}
	case SourceS3:
		s3src, err := NewS3Source(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		src = s3src
	default:
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig,
			"dataset: unknown source "+cfg.Source+", expected one of "+strings.Join(Sources, ", "))
	}

	tables, err := ReadCSV(ctx, src)
	if err != nil {
		return nil, err
	}
	ds, err := FromTables(tables)
	if err != nil {
		return nil, err
	}
	zlog.Info().Str("source", src.String()).Int("orders", len(ds.Orders)).Int("orderItems", len(ds.OrderItems)).Msg("Dataset read")
	return ds, nil
}
