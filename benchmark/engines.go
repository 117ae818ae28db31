package benchmark

import (
	"strings"

	engine "tradebench/benchmark/engines/abstract"
	"tradebench/benchmark/engines/cassandra"
	"tradebench/benchmark/engines/document"
	"tradebench/benchmark/engines/graph"
	"tradebench/benchmark/engines/keyvalue"
	"tradebench/benchmark/engines/relational"
	benchErrors "tradebench/errors"
)

// Engine names accepted in the "engine" field of the config file.
const (
	EngineRelational = "relational"
	EngineCassandra  = "cassandra"
	EngineMongoDB    = "mongodb"
	EngineNeo4j      = "neo4j"
	EngineKeyValue   = "keyvalue"
)

var Engines = []string{EngineRelational, EngineCassandra, EngineMongoDB, EngineNeo4j, EngineKeyValue}

// NewEngine builds the engine called name. configData is the whole config
// file, so each engine can deserialize its own section.
func NewEngine(name string, configData []byte) (engine.Engine, error) {
	switch name {
	case EngineRelational:
		r, err := relational.New(configData)
		if err != nil {
			return nil, err
		}
		return r, nil
	case EngineCassandra:
		c, err := cassandra.New(configData)
		if err != nil {
			return nil, err
		}
		return c, nil
	case EngineMongoDB:
		d, err := document.New(configData)
		if err != nil {
			return nil, err
		}
		return d, nil
	case EngineNeo4j:
		g, err := graph.New(configData)
		if err != nil {
			return nil, err
		}
		return g, nil
	case EngineKeyValue:
		k, err := keyvalue.New(configData)
		if err != nil {
			return nil, err
		}
		return k, nil
	}
	return nil, benchErrors.NewConfigError(benchErrors.CodeUnknownEngine,
		"unknown engine '"+name+"', expected one of "+strings.Join(Engines, ", "))
}
