package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tradebench/benchmark"
	engine "tradebench/benchmark/engines/abstract"
	"tradebench/benchmark/engines/keyvalue"
	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

// Prepare zerolog
func setupLogging(disableLog bool, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var zlevel zerolog.Level
	if disableLog {
		zlevel = zerolog.Disabled
	} else if level == "info" {
		zlevel = zerolog.InfoLevel
	} else {
		zlevel = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(zlevel)
}

// Environment variables that replace a value of the config file, so
// connection strings and credentials can stay out of it.
var envOverrides = []struct {
	env     string
	section string
	key     string
	list    bool
}{
	{env: "TRADEBENCH_ENGINE", key: "engine"},
	{env: "TRADEBENCH_RELATIONAL_DIALECT", section: "relational", key: "dialect"},
	{env: "TRADEBENCH_RELATIONAL_DSN", section: "relational", key: "dsn"},
	{env: "TRADEBENCH_CASSANDRA_HOSTS", section: "cassandra", key: "hosts", list: true},
	{env: "TRADEBENCH_MONGO_URI", section: "mongodb", key: "uri"},
	{env: "TRADEBENCH_NEO4J_URI", section: "neo4j", key: "uri"},
	{env: "TRADEBENCH_NEO4J_USER", section: "neo4j", key: "username"},
	{env: "TRADEBENCH_NEO4J_PASSWORD", section: "neo4j", key: "password"},
	{env: "TRADEBENCH_KV_STORE", section: "keyvalue", key: "store"},
	{env: "TRADEBENCH_KV_ADDRESSES", section: "keyvalue", key: "addresses", list: true},
	{env: "TRADEBENCH_KV_PASSWORD", section: "keyvalue", key: "password"},
}

// Returns the contents of configFile with the environment overrides applied.
func buildArgs(configFile string) ([]byte, error) {
	if configFile == "" {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "missing config file")
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, err.Error())
	}
	return applyEnv(data, os.LookupEnv)
}

func applyEnv(data []byte, lookup func(string) (string, bool)) ([]byte, error) {
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, err.Error())
	}
	if doc == nil {
		doc = map[string]any{}
	}

	changed := false
	for _, o := range envOverrides {
		value, ok := lookup(o.env)
		if !ok || value == "" {
			continue
		}
		var v any = value
		if o.list {
			v = strings.Split(value, ",")
		}

		target := doc
		if o.section != "" {
			section, ok := doc[o.section].(map[string]any)
			if !ok {
				section = map[string]any{}
				doc[o.section] = section
			}
			target = section
		}
		target[o.key] = v
		changed = true
		zlog.Debug().Str("env", o.env).Msg("Config value overridden")
	}

	if !changed {
		return data, nil
	}
	return yaml.Marshal(doc)
}

// Loads the .env file when there is one
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, path+": "+err.Error())
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		zlog.Error().Err(err).Msg("tradebench failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		disableLog bool
		logLevel   string
		envFile    string
	)

	root := &cobra.Command{
		Use:   "tradebench",
		Short: "Query benchmark of one e-commerce dataset across database families",
		Long: `tradebench loads the same e-commerce dataset into a relational, column-family,
document, graph or key-value backend and times four queries, before and after
the backend's secondary indexes are created.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(disableLog, logLevel)
			return loadEnvFile(envFile)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&disableLog, "no-log", false, "Disables the log")
	flags.StringVar(&logLevel, "level", "debug", "Log level (info|debug)")
	flags.StringVar(&envFile, "env", ".env", "Environment file loaded before reading the config")

	root.AddCommand(newRunCmd(), newGenerateCmd(), newExportCmd(), newEnginesCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		configFiles []string
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark of every config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmarks(cmd.Context(), cmd.OutOrStdout(), configFiles, outputJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&configFiles, "conf", nil, "Benchmark config file (repeatable)")
	flags.BoolVar(&outputJSON, "json", false, "Output reports as JSON instead of summary lines")
	_ = cmd.MarkFlagRequired("conf")
	return cmd
}

// Runs each config in turn. A failed run is reported and the next one still
// runs; the returned error is the first failure.
func runBenchmarks(ctx context.Context, w io.Writer, configFiles []string, outputJSON bool) error {
	zlog.Info().Msg("queries run without timeout")

	var firstErr error
	var previous *benchmark.Report
	for _, configFile := range configFiles {
		report, err := runOne(ctx, configFile)
		if report != nil {
			if outputJSON {
				if jErr := printJSON(w, report); jErr != nil && err == nil {
					err = jErr
				}
			} else {
				printSummary(w, report, previous == nil || previous.Engine != report.Engine)
			}
			previous = report
		}
		if err != nil {
			zlog.Error().Str("conf", configFile).Err(err).Msg("Run failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func runOne(ctx context.Context, configFile string) (*benchmark.Report, error) {
	data, err := buildArgs(configFile)
	if err != nil {
		return nil, err
	}
	b, err := benchmark.New(data)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Load(ctx, b.Config().Dataset)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx, ds)
}

func newGenerateCmd() *cobra.Command {
	var (
		outDir string
		cfg    = dataset.DefaultGeneratorConfig()
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic dataset as six CSV files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := dataset.NewGenerator(cfg)
			if err != nil {
				return err
			}
			ds := g.Generate()
			if err := dataset.WriteCSV(outDir, ds); err != nil {
				return err
			}
			zlog.Info().Str("dir", outDir).Int("orderItems", len(ds.OrderItems)).Msg("Dataset written")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&outDir, "out", "", "Output directory")
	flags.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 = random)")
	flags.IntVar(&cfg.Countries, "countries", cfg.Countries, "Number of countries")
	flags.IntVar(&cfg.Users, "users", cfg.Users, "Number of users")
	flags.IntVar(&cfg.Merchants, "merchants", cfg.Merchants, "Number of merchants")
	flags.IntVar(&cfg.Orders, "orders", cfg.Orders, "Number of orders")
	flags.IntVar(&cfg.Products, "products", cfg.Products, "Number of products")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newExportCmd() *cobra.Command {
	var configFile, outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Read the dataset back from a backend and write it as CSV files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return export(cmd.Context(), configFile, outDir)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "conf", "", "Benchmark config file")
	flags.StringVar(&outDir, "out", "", "Output directory")
	_ = cmd.MarkFlagRequired("conf")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func export(ctx context.Context, configFile, outDir string) error {
	data, err := buildArgs(configFile)
	if err != nil {
		return err
	}
	b, err := benchmark.New(data)
	if err != nil {
		return err
	}
	exporter, ok := b.Engine().(engine.Exporter)
	if !ok {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidConfig,
			"engine '"+b.Config().EngineName+"' cannot export its dataset")
	}

	if err := b.Engine().Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := b.Engine().Disconnect(ctx); err != nil {
			zlog.Warn().Err(err).Msg("Disconnect failed")
		}
	}()

	ds, err := exporter.Export(ctx)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(outDir, ds); err != nil {
		return err
	}
	zlog.Info().Str("dir", outDir).Int("orders", len(ds.Orders)).Msg("Dataset exported")
	return nil
}

func newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the engine names accepted in config files",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range benchmark.Engines {
				if name == benchmark.EngineKeyValue {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", name, strings.Join(keyvalue.Stores, ", "))
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
