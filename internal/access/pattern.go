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

// Package access declares the fixed set of query patterns the store
// supports. The backing store has no joins; every list operation must go
// through one of the pre-declared (entity, relation) patterns here, and each
// pattern is backed by a provisioned secondary index. Adding a relation kind
// means adding a registry entry and the matching index migration.
package access

import "fmt"

// Entity is a stored entity type. The values are the wire/path segments.
type Entity string

const (
	EntityDocument    Entity = "documentos"
	EntityOpportunity Entity = "oportunidades"
	EntityProject     Entity = "projetos"
	EntityProperty    Entity = "imoveis"
	EntitySimulation  Entity = "simulacoes"
	EntityTask        Entity = "tarefas"
)

// Relation is a named dimension an entity can be listed by.
type Relation string

const (
	RelationClient   Relation = "cliente"
	RelationProject  Relation = "projeto"
	RelationProperty Relation = "imovel"
	RelationVisit    Relation = "visita"
	RelationStatus   Relation = "estado"
	RelationType     Relation = "tipo"
	RelationBoard    Relation = "quadro"
)

// Pattern is one pre-declared query shape: list <Entity> by <Relation>.
type Pattern struct {
	Entity   Entity
	Relation Relation
}

// CompositeKey is the concrete key a pattern produces for one lookup.
// TenantID is always the most significant component, so a single index
// lookup can never span tenants even under a hostile relation value.
type CompositeKey struct {
	TenantID string
	Entity   Entity
	Relation Relation
	Value    string
}

// Key builds the composite query key for a tenant and relation value.
// The mapping is deterministic: the same (tenantID, relation, value) triple
// always yields the same key.
func (p Pattern) Key(tenantID, value string) CompositeKey {
	return CompositeKey{
		TenantID: tenantID,
		Entity:   p.Entity,
		Relation: p.Relation,
		Value:    value,
	}
}

// Valid reports whether every key component is present. Stores must reject
// incomplete keys as permanent failures rather than widening the scan.
func (k CompositeKey) Valid() bool {
	return k.TenantID != "" && k.Entity != "" && k.Relation != "" && k.Value != ""
}

// String returns the canonical flattened form, tenant-first. Used by
// key-bucketed stores and for observability; never parsed back.
func (k CompositeKey) String() string {
	return fmt.Sprintf("%s#%s#%s#%s", k.TenantID, k.Entity, k.Relation, k.Value)
}
