package engine

import (
	"context"

	"tradebench/dataset"
)

// Engine is implemented by every backend. Methods are called in lifecycle
// order: Connect, ProvisionSchema, LoadDataset, RunQuery (unindexed),
// ProvisionIndexes, RunQuery (indexed), Disconnect.
type Engine interface {
	// Opens the connection/session; calling it twice is a no-op
	Connect(ctx context.Context) error
	// Releases the connection; a no-op when not connected
	Disconnect(ctx context.Context) error
	// Creates the tables/keyspace/collections if they do not exist yet
	ProvisionSchema(ctx context.Context) error
	// Writes the six entities, honouring the engine's load policy
	LoadDataset(ctx context.Context, ds *dataset.Dataset) error
	// Executes one canonical query without mutating state
	RunQuery(ctx context.Context, q Query, params Params) (*ResultSet, error)
	// Creates the engine's secondary indexes if they do not exist yet
	ProvisionIndexes(ctx context.Context) error
}

// LoadPolicy tells how an engine reacts to rows that break referential
// integrity.
type LoadPolicy int

const (
	// The whole load is rolled back on the first violation
	FailFast LoadPolicy = iota
	// Violations are logged and loading continues
	BestEffort
)

func (p LoadPolicy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case BestEffort:
		return "best-effort"
	}
	return "unknown"
}

// PolicyHolder is implemented by engines that report their load policy.
type PolicyHolder interface {
	LoadPolicy() LoadPolicy
}

// Resetter is implemented by engines that can drop everything they created,
// so that a run starts from an empty backend.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Reporter is implemented by engines that expose their configuration and
// backend metrics (e.g. database size) in the run report.
type Reporter interface {
	GetConfigs() map[string]string
	GetMetrics(ctx context.Context) map[string]string
}

// Exporter is implemented by engines that can read the dataset back.
type Exporter interface {
	Export(ctx context.Context) (*dataset.Dataset, error)
}
