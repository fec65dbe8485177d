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

package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vendasol/vendasol/internal/access"
	"github.com/vendasol/vendasol/internal/audit"
	"github.com/vendasol/vendasol/internal/observability/logger"
)

// RetryConfig bounds the repository's retry of transient store failures.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig is used when no explicit policy is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// Repository serves relation-scoped list operations for one entity type.
// Scoping is done in the query key via the access-pattern registry, never
// by filtering a broader result set; a residual tenant check exists only as
// a safety net that drops and reports, it is not the isolation mechanism.
type Repository struct {
	entity      access.Entity
	registry    *access.Registry
	store       Store
	retry       RetryConfig
	auditLogger audit.Logger
}

// NewRepository creates a repository for one entity type. A nil audit
// logger defaults to the slog-backed one.
func NewRepository(entity access.Entity, registry *access.Registry, store Store, retry RetryConfig, auditLogger audit.Logger) *Repository {
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	if auditLogger == nil {
		auditLogger = audit.NewSlogLogger()
	}
	return &Repository{
		entity:      entity,
		registry:    registry,
		store:       store,
		retry:       retry,
		auditLogger: auditLogger,
	}
}

// Entity returns the entity type this repository serves.
func (r *Repository) Entity() access.Entity {
	return r.entity
}

// ListByRelation returns the tenant's records matching one relation value,
// in store index order.
//
// tenantID must originate from a resolver-produced tenant context in the
// same request. relationID is untrusted and is only ever a filter value: it
// lands in the least significant key component, so a hostile value can at
// worst select an empty slice of the caller's own tenant.
//
// An empty result is success; a relation value nothing points to yet is a
// normal state.
func (r *Repository) ListByRelation(ctx context.Context, tenantID string, relation access.Relation, relationID string) ([]Record, error) {
	if tenantID == "" {
		// Reaching here without a tenant means the boundary skipped
		// resolution; refuse rather than widen the scan.
		return nil, fmt.Errorf("%w: missing tenant scope", ErrStoreRejected)
	}

	pattern, ok := r.registry.Lookup(r.entity, relation)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownRelation, r.entity, relation)
	}

	key := pattern.Key(tenantID, relationID)
	if !key.Valid() {
		return nil, fmt.Errorf("%w: incomplete composite key for %s/%s", ErrStoreRejected, r.entity, relation)
	}

	records, err := r.queryWithRetry(ctx, key)
	if err != nil {
		return nil, err
	}

	return r.enforceTenantScope(ctx, tenantID, records), nil
}

// queryWithRetry issues the scoped query, retrying only transient failures
// with bounded exponential backoff. Permanent failures and context
// cancellation surface immediately.
func (r *Repository) queryWithRetry(ctx context.Context, key access.CompositeKey) ([]Record, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.retry.InitialInterval
	policy.MaxInterval = r.retry.MaxInterval

	operation := func() ([]Record, error) {
		records, err := r.store.Query(ctx, key)
		if err == nil {
			return records, nil
		}
		if isTransient(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	records, err := backoff.RetryWithData(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, r.retry.MaxRetries), ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key.Entity, err)
	}
	return records, nil
}

func isTransient(err error) bool {
	// Only the declared transient class retries. Anything a store surfaces
	// outside the taxonomy is treated as permanent.
	return errors.Is(err, ErrStoreUnavailable)
}

// enforceTenantScope drops any record whose stored tenant differs from the
// query scope. The composite key makes this unreachable for a conforming
// store; a hit indicates store corruption or a misprovisioned index and is
// reported loudly.
// The returned slice is freshly allocated; the store's slice is read only,
// so stores handing out shared or cached backing arrays stay intact.
func (r *Repository) enforceTenantScope(ctx context.Context, tenantID string, records []Record) []Record {
	scoped := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.TenantID != tenantID {
			slog.ErrorContext(ctx, "cross-tenant record dropped from scoped query",
				logger.TenantID(tenantID),
				logger.EntityType(string(r.entity)),
				logger.String("record_tenant", rec.TenantID),
				logger.String("record_id", rec.ID),
			)
			r.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeScopeViolation,
				TenantID: tenantID,
				Entity:   string(r.entity),
				Metadata: map[string]any{"record_tenant": rec.TenantID, "record_id": rec.ID},
			})
			continue
		}
		scoped = append(scoped, rec)
	}
	return scoped
}
