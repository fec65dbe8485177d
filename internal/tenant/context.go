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

// Package tenant defines the verified tenant identity that scopes every
// read in the system.
//
// A tenant.Context is produced exclusively by the session resolver from a
// verified credential. It is never built from request bodies, query
// parameters, or headers, and it is never stored between requests: each
// request re-verifies and gets a fresh value.
package tenant

// Context is the verified, request-scoped identity bundle.
//
// Tenant context resolution principles:
//  1. The only authoritative tenant id in a request is the one carried here.
//  2. Client-supplied tenant hints (headers, params) are never consulted.
//  3. The value lives for one request and is discarded at request end.
type Context struct {
	TenantID string
	UserID   string
	Email    string
	Role     string // optional, empty when the provider issues no role claim
}

// Valid reports whether the context carries the mandatory identity fields.
// A Context with an empty TenantID or UserID must never reach a repository.
func (c Context) Valid() bool {
	return c.TenantID != "" && c.UserID != ""
}
