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

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vendasol/vendasol/internal/access"
	"github.com/vendasol/vendasol/internal/entity"
)

// RecordStore implements entity.Store over the single shared records table.
// The composite key maps directly onto the query predicate: tenant_id and
// entity_type select the partition, the relation expression selects the
// secondary index, and created_at/record_id is the sort key.
type RecordStore struct {
	db *DB
}

// NewRecordStore creates a new record store
func NewRecordStore(db *DB) *RecordStore {
	return &RecordStore{db: db}
}

// Query returns the records matching one composite key, in index order.
func (s *RecordStore) Query(ctx context.Context, key access.CompositeKey) ([]entity.Record, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("%w: incomplete composite key", entity.ErrStoreRejected)
	}

	rows, err := s.db.pool.Query(ctx, `
		SELECT tenant_id, entity_type, record_id, relation_keys, payload, created_at
		FROM records
		WHERE tenant_id = $1 AND entity_type = $2 AND relation_keys->>$3 = $4
		ORDER BY created_at, record_id
	`, key.TenantID, string(key.Entity), string(key.Relation), key.Value)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var records []entity.Record
	for rows.Next() {
		var (
			rec          entity.Record
			entityType   string
			relationKeys []byte
			payload      []byte
		)
		if err := rows.Scan(&rec.TenantID, &entityType, &rec.ID, &relationKeys, &payload, &rec.CreatedAt); err != nil {
			return nil, classify(err)
		}
		rec.Entity = access.Entity(entityType)
		rec.Payload = json.RawMessage(payload)

		raw := map[string]string{}
		if err := json.Unmarshal(relationKeys, &raw); err != nil {
			return nil, fmt.Errorf("%w: corrupt relation keys on %s/%s: %v", entity.ErrStoreRejected, entityType, rec.ID, err)
		}
		if len(raw) > 0 {
			rec.RelationKeys = make(map[access.Relation]string, len(raw))
			for k, v := range raw {
				rec.RelationKeys[access.Relation(k)] = v
			}
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return records, nil
}

// Insert stores a record. The read core never calls this; it serves the
// seed tool and integration tests, which stand in for the external write
// paths.
func (s *RecordStore) Insert(ctx context.Context, rec entity.Record) error {
	relationKeys, err := json.Marshal(rec.RelationKeys)
	if err != nil {
		return fmt.Errorf("marshal relation keys: %w", err)
	}
	payload := rec.Payload
	if payload == nil {
		payload = json.RawMessage(`{}`)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.pool.Exec(ctx, `
		INSERT INTO records (tenant_id, entity_type, record_id, relation_keys, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.TenantID, string(rec.Entity), rec.ID, relationKeys, []byte(payload), rec.CreatedAt)
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify maps driver errors onto the store taxonomy so nothing
// postgres-specific leaks past this package.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		// Connection failures, resource exhaustion and operator
		// intervention are retryable; everything else (bad SQL, type
		// mismatches, constraint trouble) is a configuration bug.
		switch pgErr.Code[:2] {
		case "08", "53", "57", "58":
			return fmt.Errorf("%w: %s", entity.ErrStoreUnavailable, pgErr.Code)
		default:
			return fmt.Errorf("%w: %s", entity.ErrStoreRejected, pgErr.Code)
		}
	}

	// Network-level failures arrive as plain errors from the pool.
	return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
}
