// Package store persists feature flags in Redis under the flags: namespace.
package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/joseaugf/cop320-cw/pkg/cerrors"
	"github.com/joseaugf/cop320-cw/pkg/flags"
	"github.com/joseaugf/cop320-cw/pkg/log"
	"github.com/redis/go-redis/v9"
)

// Store owns key naming, default seeding, and validation for the flag
// namespace. The backing Redis instance provides the durability and
// cross-process concurrency guarantees.
type Store struct {
	rdb     *redis.Client
	catalog []flags.FeatureFlag
}

func New(rdb *redis.Client, catalog []flags.FeatureFlag) *Store {
	return &Store{rdb: rdb, catalog: catalog}
}

func flagKey(name string) string {
	return flags.KeyPrefix + name
}

// InitializeDefaults seeds every catalog flag that is not already present.
// First writer wins: an operator's customization is never overwritten.
func (s *Store) InitializeDefaults(ctx context.Context) error {
	for _, flag := range s.catalog {
		payload, err := json.Marshal(flag)
		if err != nil {
			return cerrors.Store{Operation: "seed", Key: flag.Name, Reason: err.Error()}
		}
		created, err := s.rdb.SetNX(ctx, flagKey(flag.Name), payload, 0).Result()
		if err != nil {
			return cerrors.Store{Operation: "seed", Key: flag.Name, Reason: err.Error()}
		}
		if created {
			log.Infof("[Store]: seeded default flag %v", flag.Name)
		}
	}
	return nil
}

// Get returns the flag stored under name, or nil when absent. A record that
// fails to decode, or whose embedded name disagrees with its key, is store
// corruption and propagates as an error.
func (s *Store) Get(ctx context.Context, name string) (*flags.FeatureFlag, error) {
	payload, err := s.rdb.Get(ctx, flagKey(name)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Store{Operation: "get", Key: name, Reason: err.Error()}
	}
	return decodeFlag(name, payload)
}

// GetAll enumerates every flag under the namespace. Order is unspecified.
func (s *Store) GetAll(ctx context.Context) ([]flags.FeatureFlag, error) {
	all := []flags.FeatureFlag{}
	iter := s.rdb.Scan(ctx, 0, flags.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		name := strings.TrimPrefix(key, flags.KeyPrefix)
		flag, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if flag != nil {
			all = append(all, *flag)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, cerrors.Store{Operation: "list", Reason: err.Error()}
	}
	return all, nil
}

// Set validates flag and overwrites the record under name unconditionally.
// An invalid flag is rejected before anything touches the store.
func (s *Store) Set(ctx context.Context, name string, flag *flags.FeatureFlag) error {
	if flag != nil && flag.Name == "" {
		flag.Name = name
	}
	if err := flags.Validate(flag); err != nil {
		return err
	}
	if flag.Name != name {
		return cerrors.Validation{Field: "name", Reason: "does not match the flag key"}
	}
	payload, err := json.Marshal(flag)
	if err != nil {
		return cerrors.Store{Operation: "set", Key: name, Reason: err.Error()}
	}
	if err := s.rdb.Set(ctx, flagKey(name), payload, 0).Err(); err != nil {
		return cerrors.Store{Operation: "set", Key: name, Reason: err.Error()}
	}
	return nil
}

// ResetAll deletes every key under the namespace and reseeds the defaults.
// The delete and the reseed are not atomic: a crash between them leaves the
// namespace empty until the next reseed. Callers tolerate that window.
func (s *Store) ResetAll(ctx context.Context) error {
	keys := []string{}
	iter := s.rdb.Scan(ctx, 0, flags.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return cerrors.Store{Operation: "reset", Reason: err.Error()}
	}
	if len(keys) > 0 {
		if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
			return cerrors.Store{Operation: "reset", Reason: err.Error()}
		}
	}
	log.Infof("[Store]: deleted %v flags, reseeding defaults", len(keys))
	return s.InitializeDefaults(ctx)
}

func decodeFlag(name string, payload []byte) (*flags.FeatureFlag, error) {
	var flag flags.FeatureFlag
	if err := json.Unmarshal(payload, &flag); err != nil {
		return nil, cerrors.Store{Operation: "decode", Key: name, Reason: err.Error()}
	}
	if flag.Name != name {
		return nil, cerrors.Store{Operation: "decode", Key: name, Reason: "stored name '" + flag.Name + "' does not match key"}
	}
	if flag.Config == nil {
		flag.Config = flags.FlagConfig{}
	}
	return &flag, nil
}
