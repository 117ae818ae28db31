// Package benchmark drives one engine through a run: load the dataset, time
// the four queries, add the secondary indexes, and time them again.
package benchmark

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
	"tradebench/worker"
)

const DefaultRepetitions = 10

// Pass names.
const (
	Unindexed = "unindexed"
	Indexed   = "indexed"
)

// Config is the engine-independent part of the config file.
type Config struct {
	EngineName  string `yaml:"engine"`
	Repetitions int    `yaml:"repetitions"`
	// Drop whatever a previous run left in the backend before loading
	Reset bool `yaml:"reset"`
	// Per-query parameter overrides, keyed by query name (Q1..Q4)
	Params  map[string]engine.Params `yaml:"params"`
	Dataset dataset.Config           `yaml:"dataset"`

	params map[engine.Query]engine.Params
}

// ParseConfig reads the config file and applies the defaults for the fields
// it leaves out.
func ParseConfig(configData []byte) (Config, error) {
	cfg := Config{Repetitions: DefaultRepetitions, Reset: true, Dataset: dataset.DefaultConfig()}
	if err := yaml.Unmarshal(configData, &cfg); err != nil {
		return cfg, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, err.Error())
	}
	return cfg, cfg.init()
}

func (c *Config) init() error {
	if c.Repetitions <= 0 {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidRepetitions, "repetitions must be positive")
	}
	c.params = map[engine.Query]engine.Params{}
	for name, params := range c.Params {
		q, err := engine.ParseQuery(name)
		if err != nil {
			return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "params: "+err.Error())
		}
		if _, err := q.Bind(params); err != nil {
			return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "params: "+err.Error())
		}
		c.params[q] = params
	}
	return nil
}

// QueryParams returns the parameters q runs with.
func (c *Config) QueryParams(q engine.Query) engine.Params {
	if p, ok := c.params[q]; ok {
		return p
	}
	return engine.DefaultParams(q)
}

type Benchmark struct {
	cfg    Config
	engine engine.Engine
}

// New builds the benchmark and its engine from the config file.
func New(configData []byte) (*Benchmark, error) {
	cfg, err := ParseConfig(configData)
	if err != nil {
		return nil, err
	}
	eng, err := NewEngine(cfg.EngineName, configData)
	if err != nil {
		return nil, err
	}
	return &Benchmark{cfg: cfg, engine: eng}, nil
}

// NewWithEngine runs cfg against an engine built by the caller.
func NewWithEngine(cfg Config, eng engine.Engine) (*Benchmark, error) {
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return &Benchmark{cfg: cfg, engine: eng}, nil
}

func (b *Benchmark) Config() Config {
	return b.cfg
}

func (b *Benchmark) Engine() engine.Engine {
	return b.engine
}

func (b *Benchmark) log() *zerolog.Event {
	return zlog.Info().Str("benchmark", b.cfg.EngineName)
}

// Run executes the whole lifecycle on ds. The report is returned even when a
// step fails, holding every step up to the failing one; the engine is always
// disconnected.
func (b *Benchmark) Run(ctx context.Context, ds *dataset.Dataset) (report *Report, err error) {
	report = b.newReport(ds)
	b.log().Str("run", report.RunID).Msg("Run started")

	if err = b.step(report, "connect", func() error { return b.engine.Connect(ctx) }); err != nil {
		return report, err
	}
	defer func() {
		if dErr := b.step(report, "disconnect", func() error { return b.engine.Disconnect(ctx) }); dErr != nil && err == nil {
			err = dErr
		}
	}()

	if r, ok := b.engine.(engine.Resetter); ok && b.cfg.Reset {
		if err = b.step(report, "reset", func() error { return r.Reset(ctx) }); err != nil {
			return report, err
		}
	}
	if err = b.step(report, "schema", func() error { return b.engine.ProvisionSchema(ctx) }); err != nil {
		return report, err
	}
	if err = b.step(report, "load", func() error { return b.engine.LoadDataset(ctx, ds) }); err != nil {
		return report, err
	}

	unindexed, err := b.pass(ctx, report, Unindexed, nil)
	if err != nil {
		return report, err
	}

	if err = b.step(report, "indexes", func() error { return b.engine.ProvisionIndexes(ctx) }); err != nil {
		return report, err
	}
	if _, err = b.pass(ctx, report, Indexed, unindexed); err != nil {
		return report, err
	}

	if r, ok := b.engine.(engine.Reporter); ok {
		report.Metrics = r.GetMetrics(ctx)
	}
	b.log().Str("run", report.RunID).Msg("Run ended")
	return report, nil
}

func (b *Benchmark) newReport(ds *dataset.Dataset) *Report {
	report := &Report{
		RunID:       uuid.NewString(),
		Engine:      b.cfg.EngineName,
		LoadPolicy:  engine.FailFast.String(),
		Repetitions: b.cfg.Repetitions,
		Dataset:     map[string]int{},
		Configs:     map[string]string{},
		Metrics:     map[string]string{},
	}
	if p, ok := b.engine.(engine.PolicyHolder); ok {
		report.LoadPolicy = p.LoadPolicy().String()
	}
	if r, ok := b.engine.(engine.Reporter); ok {
		report.Configs = r.GetConfigs()
	}
	if ds != nil {
		for _, e := range dataset.Entities {
			report.Dataset[string(e)] = ds.Count(e)
		}
	}
	return report
}

func (b *Benchmark) step(report *Report, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	s := Step{Name: name, Passed: err == nil, Duration: time.Since(start).Seconds()}
	if err != nil {
		s.Error = err.Error()
		zlog.Error().Str("benchmark", b.cfg.EngineName).Str("step", name).Err(err).Msg("Step failed")
	} else {
		b.log().Str("step", name).Float64("duration", s.Duration).Msg("Step done")
	}
	report.Steps = append(report.Steps, s)
	return err
}

// pass times every query. When previous holds the answers of an earlier pass,
// each query is also checked to return the same rows.
func (b *Benchmark) pass(ctx context.Context, report *Report, name string,
	previous map[engine.Query]*engine.ResultSet) (map[engine.Query]*engine.ResultSet, error) {
	b.log().Str("pass", name).Msg("Pass started")
	p := Pass{Name: name}
	answers := map[engine.Query]*engine.ResultSet{}

	for _, q := range engine.Queries {
		params := b.cfg.QueryParams(q)
		op := worker.Operation{
			Name: name + "/" + q.String(),
			Run: func(ctx context.Context) error {
				rs, err := b.engine.RunQuery(ctx, q, params)
				answers[q] = rs
				return err
			},
		}

		metric, err := worker.Measure(ctx, op, b.cfg.Repetitions)
		if err != nil {
			report.Passes = append(report.Passes, p)
			return nil, err
		}

		result := QueryResult{
			Query:       q.String(),
			Description: q.Description(),
			Mean:        metric.Mean,
			P95:         metric.P95(),
			Rows:        answers[q].Len(),
			Consistent:  true,
		}
		if previous != nil && !answers[q].Equal(previous[q]) {
			result.Consistent = false
			zlog.Warn().Str("benchmark", b.cfg.EngineName).Str("query", q.String()).Msg("Answer changed between passes")
		}
		b.log().Str("pass", name).Str("query", q.String()).Float64("mean", result.Mean).Int("rows", result.Rows).Msg("Query timed")
		p.Results = append(p.Results, result)
	}

	report.Passes = append(report.Passes, p)
	return answers, nil
}
