package keyvalue

import (
	"context"
	"strings"

	"github.com/basho/riak-go-client"
)

const (
	riakMaps = "maps"
	riakSets = "sets"

	// registries of every record key and every set key written, so neither
	// scans nor flushes need bucket listing
	riakRecordRegistry = "_records"
	riakSetRegistry    = "_sets"
)

// riakStore keeps records as CRDT maps of registers and index sets as CRDT
// sets. Both bucket types must exist on the cluster
// ("riak-admin bucket-type create maps '{"props":{"datatype":"map"}}'").
type riakStore struct {
	addresses []string
	bucket    string

	client *riak.Client
}

func (s *riakStore) Open(ctx context.Context) error {
	client, err := riak.NewClient(&riak.NewClientOptions{RemoteAddresses: s.addresses})
	if err != nil {
		return err
	}
	if _, err := client.Ping(); err != nil {
		client.Stop()
		return err
	}
	s.client = client
	return nil
}

func (s *riakStore) Close() error {
	return s.client.Stop()
}

func (s *riakStore) PutRecord(ctx context.Context, key string, fields Fields) error {
	op := &riak.MapOperation{}
	for k, v := range fields {
		op.SetRegister(k, []byte(v))
	}
	cmd, err := riak.NewUpdateMapCommandBuilder().
		WithBucketType(riakMaps).
		WithBucket(s.bucket).
		WithKey(key).
		WithMapOperation(op).
		Build()
	if err != nil {
		return err
	}
	if err := s.client.Execute(cmd); err != nil {
		return err
	}
	return s.addToSet(riakRecordRegistry, key)
}

func (s *riakStore) GetRecord(ctx context.Context, key string) (Fields, error) {
	cmd, err := riak.NewFetchMapCommandBuilder().
		WithBucketType(riakMaps).
		WithBucket(s.bucket).
		WithKey(key).
		Build()
	if err != nil {
		return nil, err
	}
	if err := s.client.Execute(cmd); err != nil {
		return nil, err
	}

	resp := cmd.(*riak.FetchMapCommand).Response
	if resp == nil || resp.IsNotFound || resp.Map == nil {
		return nil, nil
	}
	fields := Fields{}
	for k, v := range resp.Map.Registers {
		fields[k] = string(v)
	}
	return fields, nil
}

func (s *riakStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	all, err := s.SetMembers(ctx, riakRecordRegistry)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *riakStore) AddToSet(ctx context.Context, key string, members ...string) error {
	if err := s.addToSet(key, members...); err != nil {
		return err
	}
	return s.addToSet(riakSetRegistry, key)
}

func (s *riakStore) addToSet(key string, members ...string) error {
	additions := make([][]byte, len(members))
	for i, m := range members {
		additions[i] = []byte(m)
	}
	cmd, err := riak.NewUpdateSetCommandBuilder().
		WithBucketType(riakSets).
		WithBucket(s.bucket).
		WithKey(key).
		WithAdditions(additions...).
		Build()
	if err != nil {
		return err
	}
	return s.client.Execute(cmd)
}

func (s *riakStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	cmd, err := riak.NewFetchSetCommandBuilder().
		WithBucketType(riakSets).
		WithBucket(s.bucket).
		WithKey(key).
		Build()
	if err != nil {
		return nil, err
	}
	if err := s.client.Execute(cmd); err != nil {
		return nil, err
	}

	resp := cmd.(*riak.FetchSetCommand).Response
	if resp == nil || resp.IsNotFound {
		return nil, nil
	}
	members := make([]string, 0, len(resp.SetValue))
	for _, v := range resp.SetValue {
		members = append(members, string(v))
	}
	return members, nil
}

// Flush deletes every registered record and set, then the registries.
func (s *riakStore) Flush(ctx context.Context) error {
	records, err := s.SetMembers(ctx, riakRecordRegistry)
	if err != nil {
		return err
	}
	for _, key := range records {
		if err := s.delete(riakMaps, key); err != nil {
			return err
		}
	}

	sets, err := s.SetMembers(ctx, riakSetRegistry)
	if err != nil {
		return err
	}
	for _, key := range append(sets, riakRecordRegistry, riakSetRegistry) {
		if err := s.delete(riakSets, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *riakStore) delete(bucketType, key string) error {
	cmd, err := riak.NewDeleteValueCommandBuilder().
		WithBucketType(bucketType).
		WithBucket(s.bucket).
		WithKey(key).
		Build()
	if err != nil {
		return err
	}
	return s.client.Execute(cmd)
}
