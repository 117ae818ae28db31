package dataset

import (
	"context"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"

	benchErrors "tradebench/errors"
)

func TestLoadSources(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := WriteCSV(dir, Fixture()); err != nil {
		t.Fatal(err)
	}

	fromDir, err := Load(ctx, Config{Source: SourceDir, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fromDir, Fixture()) {
		t.Error("dataset read from dir differs from the fixture")
	}

	fixture, err := Load(ctx, Config{})
	if err != nil || !reflect.DeepEqual(fixture, Fixture()) {
		t.Errorf("empty source should load the fixture, got err %v", err)
	}

	cfg := DefaultConfig()
	cfg.Source = SourceGenerate
	cfg.Generator.Users = 7
	generated, err := Load(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(generated.Users) != 7 || len(generated.Countries) != DefaultGeneratorConfig().Countries {
		t.Errorf("generated %d users and %d countries", len(generated.Users), len(generated.Countries))
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Source: "ftp"},
		{Source: SourceDir},
		{Source: SourceS3},
		{Source: SourceGenerate},
	} {
		if _, err := Load(context.Background(), cfg); benchErrors.GetCategory(err) != benchErrors.ErrCategoryConfig {
			t.Errorf("%+v: got %v, want CONFIG error", cfg, err)
		}
	}

	_, err := Load(context.Background(), Config{Source: SourceDir, Dir: t.TempDir()})
	if benchErrors.GetCode(err) != benchErrors.CodeSourceUnavailable {
		t.Errorf("empty dir: got %v, want SOURCE_UNAVAILABLE", err)
	}
}

func TestPartialGeneratorSection(t *testing.T) {
	cfg := DefaultConfig()
	data := []byte("source: generate\ngenerator:\n  orders: 3\n  seed: 9\n")
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Generator.Orders != 3 || cfg.Generator.Seed != 9 || cfg.Generator.Users != DefaultGeneratorConfig().Users {
		t.Errorf("partial section did not merge with defaults: %+v", cfg.Generator)
	}
}
