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

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendasol/vendasol/internal/access"
	"github.com/vendasol/vendasol/internal/audit"
	"github.com/vendasol/vendasol/internal/entity"
	"github.com/vendasol/vendasol/internal/observability/metrics"
	"github.com/vendasol/vendasol/internal/session"
	"github.com/vendasol/vendasol/internal/store/memory"
)

const (
	testSecret     = "transport-test-secret"
	testIssuer     = "https://idp.vendasol.test"
	testCookieName = "vendasol_session"
)

// countingStore wraps a store and counts queries, so tests can prove that
// rejected requests never reach the data layer.
type countingStore struct {
	inner entity.Store
	calls atomic.Int64
}

func (s *countingStore) Query(ctx context.Context, key access.CompositeKey) ([]entity.Record, error) {
	s.calls.Add(1)
	return s.inner.Query(ctx, key)
}

// failingStore always reports the store as unreachable.
type failingStore struct{}

func (failingStore) Query(context.Context, access.CompositeKey) ([]entity.Record, error) {
	return nil, entity.ErrStoreUnavailable
}

func newTestRouter(t *testing.T, store entity.Store) http.Handler {
	t.Helper()

	verifier, err := session.NewJWTVerifier(session.JWTVerifierConfig{
		Issuer:     testIssuer,
		HMACSecret: []byte(testSecret),
	})
	require.NoError(t, err)
	resolver := session.NewResolver(verifier, nil)

	registry := access.DefaultRegistry()

	retry := entity.RetryConfig{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}
	repos := make(map[access.Entity]*entity.Repository)
	for _, e := range registry.Entities() {
		repos[e] = entity.NewRepository(e, registry, store, retry, audit.NewSlogLogger())
	}

	meter, err := metrics.New(context.Background(), metrics.Config{Enabled: false}, "test")
	require.NoError(t, err)

	h := NewHandler(resolver, registry, repos, audit.NewSlogLogger(), testCookieName, meter)
	return NewRouter(h, NewRateLimiter(1000, 1000))
}

func signToken(t *testing.T, tenantID, subject string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    subject,
		"email":  subject + "@" + tenantID + ".example.com",
		"tenant": tenantID,
		"role":   "vendedor",
		"iss":    testIssuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doGet(t *testing.T, router http.Handler, path, cookie string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: cookie})
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) dataEnvelope {
	t.Helper()
	var env dataEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func seedDocumento(t *testing.T, store *memory.Store, tenantID, id, clientID string) {
	t.Helper()
	require.NoError(t, store.Put(entity.Record{
		TenantID: tenantID,
		Entity:   access.EntityDocument,
		ID:       id,
		RelationKeys: map[access.Relation]string{
			access.RelationClient: clientID,
		},
		Payload: json.RawMessage(`{"nome":"contrato.pdf"}`),
	}))
}

// TestPurpose: Validates that a relation list only ever returns the caller
// tenant's records, even when another tenant holds records under the same
// relation value.
// Scope: Unit Test
// Security: Tenant isolation at the HTTP boundary
// Expected: Each tenant sees exactly its own records.
// Test Case ID: HTP-01
func TestListByRelation_SameRelationValue_ScopedToCallerTenant(t *testing.T) {
	store := memory.New()
	seedDocumento(t, store, "acme", "d-1", "c-100")
	seedDocumento(t, store, "acme", "d-2", "c-100")
	seedDocumento(t, store, "globex", "d-9", "c-100")
	router := newTestRouter(t, store)

	w := doGet(t, router, "/documentos/cliente/c-100", signToken(t, "acme", "u-1"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeData(t, w)
	assert.Equal(t, "success", env.Status)
	require.Len(t, env.Data, 2, "HTP-01: acme must see exactly its two documents")
	assert.Equal(t, "d-1", env.Data[0].ID)
	assert.Equal(t, "d-2", env.Data[1].ID)

	w = doGet(t, router, "/documentos/cliente/c-100", signToken(t, "globex", "u-9"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = decodeData(t, w)
	require.Len(t, env.Data, 1, "HTP-01: globex must see only its own document")
	assert.Equal(t, "d-9", env.Data[0].ID)
}

func TestListByRelation_EmptyRelation_ReturnsSuccessWithEmptyArray(t *testing.T) {
	router := newTestRouter(t, memory.New())

	w := doGet(t, router, "/documentos/cliente/c-none", signToken(t, "acme", "u-1"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeData(t, w)
	assert.Equal(t, "success", env.Status)
	assert.NotNil(t, env.Data)
	assert.Empty(t, env.Data)
	assert.Contains(t, w.Body.String(), `"data":[]`, "an empty relation still serializes the array")
}

// TestPurpose: Validates that an unauthenticated request is rejected before
// any store access happens.
// Scope: Unit Test
// Security: Fail-closed session resolution (auth precedes data access)
// Expected: Returns HTTP 401 with the error envelope and zero store queries.
// Test Case ID: HTP-02
func TestListByRelation_NoCredential_Returns401_WithoutStoreAccess(t *testing.T) {
	counting := &countingStore{inner: memory.New()}
	router := newTestRouter(t, counting)

	w := doGet(t, router, "/documentos/cliente/c-100", "", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeError(t, w)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "not authenticated", env.Message)
	assert.Zero(t, counting.calls.Load(), "HTP-02: the 401 path must not touch the store")
}

// TestPurpose: Validates that a malformed or forged session credential is
// treated the same as a missing one.
// Scope: Unit Test
// Security: Credential verification boundary
// Expected: Returns HTTP 401 and performs zero store queries.
// Test Case ID: HTP-03
func TestListByRelation_GarbageCredential_Returns401(t *testing.T) {
	counting := &countingStore{inner: memory.New()}
	router := newTestRouter(t, counting)

	w := doGet(t, router, "/documentos/cliente/c-100", "not-a-jwt", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "not authenticated", decodeError(t, w).Message)
	assert.Zero(t, counting.calls.Load())
}

// TestPurpose: Validates that a verified identity with no derivable tenant
// is rejected as unresolvable, not as unauthenticated.
// Scope: Unit Test
// Security: Tenant derivation failure handling
// Expected: Returns HTTP 404 "tenant not found" and zero store queries.
// Test Case ID: HTP-04
func TestListByRelation_NoTenantClaim_Returns404(t *testing.T) {
	counting := &countingStore{inner: memory.New()}
	router := newTestRouter(t, counting)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	w := doGet(t, router, "/documentos/cliente/c-100", signed, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "tenant not found", decodeError(t, w).Message)
	assert.Zero(t, counting.calls.Load())
}

// TestPurpose: Validates that a client-supplied tenant id header on an
// authenticated request is rejected instead of honored.
// Scope: Unit Test
// Security: Tenant spoofing prevention (session is the only tenant source)
// Expected: Returns HTTP 400 and performs zero store queries.
// Test Case ID: HTP-05
func TestListByRelation_TenantHeader_Rejected(t *testing.T) {
	counting := &countingStore{inner: memory.New()}
	router := newTestRouter(t, counting)

	w := doGet(t, router, "/documentos/cliente/c-100", signToken(t, "acme", "u-1"),
		map[string]string{"X-Tenant-ID": "globex"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", decodeError(t, w).Status)
	assert.Zero(t, counting.calls.Load(), "HTP-05: a spoofing attempt must not reach the store")
}

func TestListByRelation_BearerHeader_AcceptedWithoutCookie(t *testing.T) {
	store := memory.New()
	seedDocumento(t, store, "acme", "d-1", "c-100")
	router := newTestRouter(t, store)

	w := doGet(t, router, "/documentos/cliente/c-100", "",
		map[string]string{"Authorization": "Bearer " + signToken(t, "acme", "u-1")})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeData(t, w).Data, 1)
}

func TestListByRelation_UnknownEntityType_Returns404(t *testing.T) {
	router := newTestRouter(t, memory.New())

	w := doGet(t, router, "/faturas/cliente/c-100", signToken(t, "acme", "u-1"), nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown entity type", decodeError(t, w).Message)
}

func TestListByRelation_UndeclaredRelation_Returns404(t *testing.T) {
	router := newTestRouter(t, memory.New())

	// imoveis declares only cliente; estado is valid for other entities.
	w := doGet(t, router, "/imoveis/estado/ativo", signToken(t, "acme", "u-1"), nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown relation for entity", decodeError(t, w).Message)
}

func TestListByRelation_StoreUnavailable_Returns500(t *testing.T) {
	router := newTestRouter(t, failingStore{})

	w := doGet(t, router, "/documentos/cliente/c-100", signToken(t, "acme", "u-1"), nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeError(t, w)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "internal error", env.Message)
	assert.Equal(t, "store unavailable", env.Error)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, memory.New())

	w := doGet(t, router, "/health", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
