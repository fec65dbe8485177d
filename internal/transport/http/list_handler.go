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
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vendasol/vendasol/internal/access"
	"github.com/vendasol/vendasol/internal/audit"
	"github.com/vendasol/vendasol/internal/entity"
	"github.com/vendasol/vendasol/internal/observability/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ListByRelation serves every declared relation list operation.
// @Summary List entities by relation
// @Description List the caller tenant's entities of one type scoped by a relation value
// @Tags Records
// @Produce json
// @Security CookieAuth
// @Param entityType path string true "Entity type"
// @Param relationKind path string true "Relation kind"
// @Param relationID path string true "Relation value"
// @Success 200 {object} dataEnvelope
// @Failure 401 {object} errorEnvelope
// @Failure 404 {object} errorEnvelope
// @Failure 500 {object} errorEnvelope
// @Router /{entityType}/{relationKind}/{relationID} [get]
func (h *Handler) ListByRelation(w http.ResponseWriter, r *http.Request) {
	tc := TenantContext(r.Context())
	if !tc.Valid() {
		// The route is wrapped by AuthMiddleware; an invalid context here
		// means a wiring bug, not a client error.
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	entityType := access.Entity(chi.URLParam(r, "entityType"))
	relation := access.Relation(chi.URLParam(r, "relationKind"))
	relationID := chi.URLParam(r, "relationID")

	repo, ok := h.repositories[entityType]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown entity type")
		return
	}
	if _, ok := h.registry.Lookup(entityType, relation); !ok {
		respondError(w, http.StatusNotFound, "unknown relation for entity")
		return
	}

	h.listRequests.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("entity", string(entityType)),
		attribute.String("relation", string(relation)),
	))

	records, err := repo.ListByRelation(r.Context(), tc.TenantID, relation, relationID)
	if err != nil {
		h.respondListError(w, r, tc.TenantID, entityType, relation, err)
		return
	}

	slog.InfoContext(r.Context(), "relation list served",
		logger.TenantID(tc.TenantID),
		logger.EntityType(string(entityType)),
		logger.RelationKind(string(relation)),
		logger.ResultCount(len(records)),
	)
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:     audit.TypeListServed,
		TenantID: tc.TenantID,
		ActorID:  tc.UserID,
		Entity:   string(entityType),
		Relation: string(relation),
		Metadata: map[string]any{"result_count": len(records)},
	})

	respondData(w, records)
}

// respondListError maps the repository taxonomy onto the fixed response
// envelopes. Internal detail stays in the server-side log; the client sees
// only the error class.
func (h *Handler) respondListError(w http.ResponseWriter, r *http.Request, tenantID string, entityType access.Entity, relation access.Relation, err error) {
	h.listFailures.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("entity", string(entityType)),
		attribute.String("relation", string(relation)),
	))

	switch {
	case errors.Is(err, entity.ErrUnknownRelation):
		respondError(w, http.StatusNotFound, "unknown relation for entity")

	case errors.Is(err, entity.ErrStoreUnavailable):
		slog.ErrorContext(r.Context(), "store unavailable after retries",
			logger.TenantID(tenantID),
			logger.EntityType(string(entityType)),
			logger.RelationKind(string(relation)),
			logger.Error(err),
		)
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:     audit.TypeStoreFailure,
			TenantID: tenantID,
			Entity:   string(entityType),
			Relation: string(relation),
		})
		respondInternalError(w, "store unavailable")

	default:
		// ErrStoreRejected and anything outside the taxonomy: a
		// configuration bug, never retried.
		slog.ErrorContext(r.Context(), "store rejected relation query",
			logger.TenantID(tenantID),
			logger.EntityType(string(entityType)),
			logger.RelationKind(string(relation)),
			logger.Error(err),
		)
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:     audit.TypeStoreFailure,
			TenantID: tenantID,
			Entity:   string(entityType),
			Relation: string(relation),
		})
		respondInternalError(w, "store rejected query")
	}
}
