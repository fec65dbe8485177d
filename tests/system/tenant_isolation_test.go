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

// Package system provides integration tests that run against a real PostgreSQL database.
//
// Test Execution:
//
//	INTEGRATION_TEST=true go test -v ./tests/system/...
//
// Prerequisites:
//
//	docker compose up -d postgres
//
// Test Categories:
//   - TEN-*: Tenant isolation tests
//   - IDX-*: Access pattern index tests
package system

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendasol/vendasol/internal/access"
	"github.com/vendasol/vendasol/internal/entity"
	"github.com/vendasol/vendasol/internal/id"
	"github.com/vendasol/vendasol/internal/store/postgres"
)

// testDB is the shared database connection for integration tests
var testDB *postgres.DB

// TestMain sets up and tears down the test database connection
func TestMain(m *testing.M) {
	// Skip if not integration test
	if os.Getenv("INTEGRATION_TEST") != "true" {
		os.Exit(0)
	}

	// Setup database
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         getEnvOrDefault("DB_HOST", "localhost"),
		Port:         getEnvOrDefault("DB_PORT", "5432"),
		User:         getEnvOrDefault("DB_USER", "vendasol"),
		Password:     getEnvOrDefault("DB_PASSWORD", "vendasol_dev_password"),
		Database:     getEnvOrDefault("DB_NAME", "vendasol"),
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	testDB = db

	// Apply migrations
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		// Ignore errors for already existing tables
		_ = err
	}

	// Run tests
	code := m.Run()

	// Cleanup
	testDB.Close()
	os.Exit(code)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func insertDocument(t *testing.T, store *postgres.RecordStore, tenantID, clientID string) entity.Record {
	t.Helper()
	rec := entity.Record{
		TenantID: tenantID,
		Entity:   access.EntityDocument,
		ID:       id.NewUUIDv7(),
		RelationKeys: map[access.Relation]string{
			access.RelationClient: clientID,
		},
		Payload: json.RawMessage(`{"nome":"doc.pdf"}`),
	}
	require.NoError(t, store.Insert(context.Background(), rec))
	return rec
}

// =============================================================================
// TENANT ISOLATION TESTS
// =============================================================================

// TestPurpose: Validates that two tenants holding records under the same
// relation value never see each other's rows through the indexed query.
// Scope: Integration Test (real PostgreSQL)
// Security: Tenant isolation at the storage layer
// Expected: Each tenant's query returns exactly its own records.
// Test Case ID: TEN-01
func TestRecordStore_SameRelationValue_TwoTenants_Isolated(t *testing.T) {
	ctx := context.Background()
	store := postgres.NewRecordStore(testDB)

	tenantA := "ten-" + id.NewUUIDv7()
	tenantB := "ten-" + id.NewUUIDv7()
	clientID := "c-" + id.NewUUIDv7()

	recA1 := insertDocument(t, store, tenantA, clientID)
	recA2 := insertDocument(t, store, tenantA, clientID)
	recB := insertDocument(t, store, tenantB, clientID)

	pattern := access.Pattern{Entity: access.EntityDocument, Relation: access.RelationClient}

	gotA, err := store.Query(ctx, pattern.Key(tenantA, clientID))
	require.NoError(t, err)
	require.Len(t, gotA, 2, "TEN-01: tenant A must see exactly its two records")
	for _, rec := range gotA {
		assert.Equal(t, tenantA, rec.TenantID)
		assert.NotEqual(t, recB.ID, rec.ID)
	}
	assert.Equal(t, recA1.ID, gotA[0].ID)
	assert.Equal(t, recA2.ID, gotA[1].ID)

	gotB, err := store.Query(ctx, pattern.Key(tenantB, clientID))
	require.NoError(t, err)
	require.Len(t, gotB, 1, "TEN-01: tenant B must see only its own record")
	assert.Equal(t, recB.ID, gotB[0].ID)
}

// TestPurpose: Validates that a query for a tenant with no records under the
// relation value returns an empty result rather than an error or another
// tenant's rows.
// Scope: Integration Test (real PostgreSQL)
// Security: Tenant isolation with hostile relation values
// Expected: Empty result for the non-owning tenant.
// Test Case ID: TEN-02
func TestRecordStore_ForeignRelationValue_ReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	store := postgres.NewRecordStore(testDB)

	owner := "ten-" + id.NewUUIDv7()
	outsider := "ten-" + id.NewUUIDv7()
	clientID := "c-" + id.NewUUIDv7()

	insertDocument(t, store, owner, clientID)

	pattern := access.Pattern{Entity: access.EntityDocument, Relation: access.RelationClient}
	got, err := store.Query(ctx, pattern.Key(outsider, clientID))
	require.NoError(t, err)
	assert.Empty(t, got, "TEN-02: knowing another tenant's relation value must not expose its records")
}

// =============================================================================
// ACCESS PATTERN INDEX TESTS
// =============================================================================

// TestPurpose: Validates that repeated identical queries return identical
// results in a stable order.
// Scope: Integration Test (real PostgreSQL)
// Expected: Same rows, same order, across consecutive queries.
// Test Case ID: IDX-01
func TestRecordStore_RepeatedQuery_StableOrder(t *testing.T) {
	ctx := context.Background()
	store := postgres.NewRecordStore(testDB)

	tenantID := "ten-" + id.NewUUIDv7()
	boardID := "b-" + id.NewUUIDv7()

	for i := 0; i < 3; i++ {
		rec := entity.Record{
			TenantID: tenantID,
			Entity:   access.EntityTask,
			ID:       id.NewUUIDv7(),
			RelationKeys: map[access.Relation]string{
				access.RelationBoard: boardID,
			},
			Payload:   json.RawMessage(`{"titulo":"tarefa"}`),
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, store.Insert(ctx, rec))
	}

	key := access.Pattern{Entity: access.EntityTask, Relation: access.RelationBoard}.Key(tenantID, boardID)

	first, err := store.Query(ctx, key)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := store.Query(ctx, key)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "IDX-01: order must be stable across queries")
	}
}

// TestPurpose: Validates that a record carrying several relation keys is
// reachable through each of its declared access patterns.
// Scope: Integration Test (real PostgreSQL)
// Expected: The same record is returned by every relation it carries.
// Test Case ID: IDX-02
func TestRecordStore_MultipleRelations_EachPatternFindsRecord(t *testing.T) {
	ctx := context.Background()
	store := postgres.NewRecordStore(testDB)

	tenantID := "ten-" + id.NewUUIDv7()
	clientID := "c-" + id.NewUUIDv7()
	statusID := "proposta"

	rec := entity.Record{
		TenantID: tenantID,
		Entity:   access.EntityOpportunity,
		ID:       id.NewUUIDv7(),
		RelationKeys: map[access.Relation]string{
			access.RelationClient: clientID,
			access.RelationStatus: statusID,
		},
		Payload: json.RawMessage(`{"valor":9000}`),
	}
	require.NoError(t, store.Insert(ctx, rec))

	byClient, err := store.Query(ctx,
		access.Pattern{Entity: access.EntityOpportunity, Relation: access.RelationClient}.Key(tenantID, clientID))
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, rec.ID, byClient[0].ID)

	byStatus, err := store.Query(ctx,
		access.Pattern{Entity: access.EntityOpportunity, Relation: access.RelationStatus}.Key(tenantID, statusID))
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, rec.ID, byStatus[0].ID)
}
