// Copyright 2026 The Vendasol Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memory implements the document store capability in process
// memory. Records are bucketed by canonical composite key, mirroring the
// single-table secondary-index model: a query touches exactly one bucket
// and is therefore tenant-scoped by construction. Used by tests and the
// dependency-free local mode.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vendasol/vendasol/internal/access"
	"github.com/vendasol/vendasol/internal/entity"
)

// Store is an in-memory, index-ordered record store. Safe for concurrent
// use. Insertion order within a bucket is the index order.
type Store struct {
	mu      sync.RWMutex
	buckets map[string][]entity.Record
}

// New creates an empty store.
func New() *Store {
	return &Store{buckets: make(map[string][]entity.Record)}
}

// Put stores a record under every relation key it carries. Writes are
// outside the read core; this exists for seeding and tests.
func (s *Store) Put(rec entity.Record) error {
	if rec.TenantID == "" || rec.Entity == "" || rec.ID == "" {
		return fmt.Errorf("%w: record missing tenant, entity or id", entity.ErrStoreRejected)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for relation, value := range rec.RelationKeys {
		if value == "" {
			continue
		}
		key := access.CompositeKey{
			TenantID: rec.TenantID,
			Entity:   rec.Entity,
			Relation: relation,
			Value:    value,
		}
		bucket := key.String()
		s.buckets[bucket] = append(s.buckets[bucket], rec)
	}
	return nil
}

// Query returns the bucket for the composite key in insertion order. A
// missing bucket is an empty result, not an error.
func (s *Store) Query(ctx context.Context, key access.CompositeKey) ([]entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
	}
	if !key.Valid() {
		return nil, fmt.Errorf("%w: incomplete composite key", entity.ErrStoreRejected)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.buckets[key.String()]
	out := make([]entity.Record, len(bucket))
	copy(out, bucket)
	return out, nil
}
