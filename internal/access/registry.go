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

package access

import "fmt"

// Registry is the immutable table of supported access patterns. Built once
// at process start, never mutated afterwards; safe for concurrent use.
type Registry struct {
	patterns map[Entity]map[Relation]Pattern
}

// NewRegistry builds a registry from the given patterns. Duplicate
// (entity, relation) pairs are a configuration bug and fail construction.
func NewRegistry(patterns ...Pattern) (*Registry, error) {
	r := &Registry{patterns: make(map[Entity]map[Relation]Pattern)}
	for _, p := range patterns {
		if p.Entity == "" || p.Relation == "" {
			return nil, fmt.Errorf("incomplete access pattern %q/%q", p.Entity, p.Relation)
		}
		byRelation, ok := r.patterns[p.Entity]
		if !ok {
			byRelation = make(map[Relation]Pattern)
			r.patterns[p.Entity] = byRelation
		}
		if _, exists := byRelation[p.Relation]; exists {
			return nil, fmt.Errorf("duplicate access pattern %s/%s", p.Entity, p.Relation)
		}
		byRelation[p.Relation] = p
	}
	return r, nil
}

// Lookup returns the pattern for an (entity, relation) pair, if declared.
func (r *Registry) Lookup(entity Entity, relation Relation) (Pattern, bool) {
	p, ok := r.patterns[entity][relation]
	return p, ok
}

// Entities returns the entity types that have at least one pattern.
func (r *Registry) Entities() []Entity {
	out := make([]Entity, 0, len(r.patterns))
	for e := range r.patterns {
		out = append(out, e)
	}
	return out
}

// Relations returns the declared relations for an entity.
func (r *Registry) Relations(entity Entity) []Relation {
	out := make([]Relation, 0, len(r.patterns[entity]))
	for rel := range r.patterns[entity] {
		out = append(out, rel)
	}
	return out
}

// DefaultRegistry declares every access pattern the application serves.
// One entry per exposed list operation; the schema migration provisions a
// matching secondary index for each.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Pattern{EntityDocument, RelationClient},
		Pattern{EntityDocument, RelationProject},
		Pattern{EntityDocument, RelationType},

		Pattern{EntityOpportunity, RelationClient},
		Pattern{EntityOpportunity, RelationStatus},
		Pattern{EntityOpportunity, RelationBoard},

		Pattern{EntityProject, RelationClient},
		Pattern{EntityProject, RelationStatus},

		Pattern{EntityProperty, RelationClient},

		Pattern{EntitySimulation, RelationClient},
		Pattern{EntitySimulation, RelationProperty},
		Pattern{EntitySimulation, RelationVisit},

		Pattern{EntityTask, RelationProject},
		Pattern{EntityTask, RelationBoard},
		Pattern{EntityTask, RelationStatus},
	)
	if err != nil {
		// The default table is static; an error here is a programming bug.
		panic(err)
	}
	return r
}
