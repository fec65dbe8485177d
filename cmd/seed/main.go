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

// Command seed loads demonstration records for two tenants so the list
// endpoints have data to serve in a fresh environment.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vendasol/vendasol/internal/access"
	"github.com/vendasol/vendasol/internal/config"
	"github.com/vendasol/vendasol/internal/entity"
	"github.com/vendasol/vendasol/internal/id"
	"github.com/vendasol/vendasol/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	store := postgres.NewRecordStore(db)
	count := 0
	for _, rec := range demoRecords() {
		if err := store.Insert(ctx, rec); err != nil {
			fmt.Printf("Failed to insert %s/%s: %v\n", rec.Entity, rec.ID, err)
			os.Exit(1)
		}
		count++
	}

	fmt.Printf("✓ Seeded %d records\n", count)
}

func demoRecords() []entity.Record {
	var records []entity.Record

	add := func(tenantID string, e access.Entity, relations map[access.Relation]string, payload map[string]any) {
		raw, _ := json.Marshal(payload)
		records = append(records, entity.Record{
			TenantID:     tenantID,
			Entity:       e,
			ID:           id.NewUUIDv7(),
			RelationKeys: relations,
			Payload:      raw,
		})
	}

	// Tenant "acme": one client with a project, a property, documents and
	// the surrounding records.
	add("acme", access.EntityProject,
		map[access.Relation]string{access.RelationClient: "c-100", access.RelationStatus: "em_curso"},
		map[string]any{"nome": "Instalação fotovoltaica Moradia Sintra", "potencia_kwp": 6.5})
	add("acme", access.EntityProperty,
		map[access.Relation]string{access.RelationClient: "c-100"},
		map[string]any{"morada": "Rua das Acácias 12, Sintra", "tipo": "moradia"})
	add("acme", access.EntityDocument,
		map[access.Relation]string{access.RelationClient: "c-100", access.RelationProject: "p-1", access.RelationType: "contrato"},
		map[string]any{"nome": "contrato_assinado.pdf"})
	add("acme", access.EntityDocument,
		map[access.Relation]string{access.RelationClient: "c-100", access.RelationProject: "p-1", access.RelationType: "fatura"},
		map[string]any{"nome": "fatura_sinal.pdf"})
	add("acme", access.EntityOpportunity,
		map[access.Relation]string{access.RelationClient: "c-100", access.RelationStatus: "proposta", access.RelationBoard: "vendas"},
		map[string]any{"valor": 8900, "origem": "website"})
	add("acme", access.EntitySimulation,
		map[access.Relation]string{access.RelationClient: "c-100", access.RelationProperty: "i-1", access.RelationVisit: "v-1"},
		map[string]any{"poupanca_anual": 1240, "retorno_anos": 6.2})
	add("acme", access.EntityTask,
		map[access.Relation]string{access.RelationProject: "p-1", access.RelationBoard: "instalacao", access.RelationStatus: "pendente"},
		map[string]any{"titulo": "Agendar vistoria técnica"})

	// Tenant "globex": deliberately reuses the relation value c-100 so the
	// demo shows that equal values in different tenants never mix.
	add("globex", access.EntityDocument,
		map[access.Relation]string{access.RelationClient: "c-100", access.RelationType: "contrato"},
		map[string]any{"nome": "proposta_comercial.pdf"})
	add("globex", access.EntityOpportunity,
		map[access.Relation]string{access.RelationClient: "c-100", access.RelationStatus: "ganho", access.RelationBoard: "vendas"},
		map[string]any{"valor": 15400, "origem": "parceiro"})

	return records
}
