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

// Package entity provides relation-scoped read access to stored records.
// Writes happen outside this core; from here the store is read-only.
package entity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vendasol/vendasol/internal/access"
)

// Store error taxonomy. Store implementations surface only these two
// classes; everything implementation-specific stays behind them.
var (
	// ErrStoreUnavailable is transient (throttling, lost connection).
	// The repository retries it with bounded backoff.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStoreRejected is permanent (malformed key, schema mismatch).
	// Never retried; treated as a configuration bug.
	ErrStoreRejected = errors.New("store rejected query")
)

// ErrUnknownRelation means no access pattern is declared for the requested
// (entity, relation) pair. The query surface is enumerated; this is a miss,
// not a failure of the store.
var ErrUnknownRelation = errors.New("unknown relation for entity")

// Record is the generic stored shape shared by every entity type.
type Record struct {
	TenantID     string                     `json:"tenant_id"`
	Entity       access.Entity              `json:"entity"`
	ID           string                     `json:"id"`
	RelationKeys map[access.Relation]string `json:"relation_keys,omitempty"`
	Payload      json.RawMessage            `json:"payload"`
	CreatedAt    time.Time                  `json:"created_at"`
}

// Store is the document store capability: a single scoped query against a
// provisioned index. Implementations return records in index order and must
// be safe for concurrent use. Callers treat the returned slice as read-only;
// implementations may hand out shared or cached backing arrays.
type Store interface {
	Query(ctx context.Context, key access.CompositeKey) ([]Record, error)
}
