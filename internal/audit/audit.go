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

// Package audit records security-relevant data-access events. Events carry
// identifiers and counts only; record payloads are never audited.
package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Event types
const (
	TypeAccessDenied     = "access_denied"      // credential missing or unverifiable
	TypeTenantUnresolved = "tenant_unresolved"  // verified identity, no tenant
	TypeListServed       = "list_served"        // relation query answered
	TypeTenantHeaderSeen = "tenant_header_seen" // client tried to supply a tenant id
	TypeScopeViolation   = "scope_violation"    // store returned out-of-scope rows
	TypeStoreFailure     = "store_failure"
)

// Event represents an auditable action
type Event struct {
	Type      string
	TenantID  string
	ActorID   string
	Entity    string
	Relation  string
	Metadata  map[string]any
	Timestamp time.Time
	IPAddress string
	UserAgent string
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog
type SlogLogger struct{}

// NewSlogLogger creates a new audit logger
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("audit_type", event.Type),
		slog.String("tenant_id", event.TenantID),
		slog.String("actor_id", event.ActorID),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.Entity != "" {
		attrs = append(attrs, slog.String("entity", event.Entity))
	}
	if event.Relation != "" {
		attrs = append(attrs, slog.String("relation", event.Relation))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}

	if len(event.Metadata) > 0 {
		group := []any{}
		for k, v := range event.Metadata {
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}

// isSecret checks if a key likely carries a secret
func isSecret(key string) bool {
	lowered := strings.ToLower(key)
	for _, fragment := range []string{"password", "secret", "token", "key", "hash", "credential", "authorization"} {
		if strings.Contains(lowered, fragment) {
			return true
		}
	}
	return false
}
