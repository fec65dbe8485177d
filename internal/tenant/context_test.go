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

package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates that a tenant context is only considered valid when
// both tenant id and user id are present.
// Scope: Unit Test
// Security: Multi-tenant boundary enforcement
// Expected: Contexts missing either mandatory field are invalid.
// Test Case ID: TEN-01
func TestContext_Valid(t *testing.T) {
	assert.True(t, Context{TenantID: "acme", UserID: "u-1"}.Valid())
	assert.True(t, Context{TenantID: "acme", UserID: "u-1", Email: "a@acme.pt", Role: "gestor"}.Valid())

	assert.False(t, Context{}.Valid())
	assert.False(t, Context{TenantID: "acme"}.Valid(), "user id is mandatory")
	assert.False(t, Context{UserID: "u-1"}.Valid(), "tenant id is mandatory")
}
