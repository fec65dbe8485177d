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

	"github.com/vendasol/vendasol/internal/tenant"
)

type contextKey string

const tenantContextKey contextKey = "tenant_context"

// withTenantContext attaches the resolved tenant context to the request
// context. Request-scoped carry only, not ambient session state: the value
// exists solely between the auth middleware and the handler of the same
// request.
func withTenantContext(ctx context.Context, tc tenant.Context) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// TenantContext retrieves the resolved tenant context. The zero value is
// returned when resolution has not happened; callers must check Valid().
func TenantContext(ctx context.Context) tenant.Context {
	if tc, ok := ctx.Value(tenantContextKey).(tenant.Context); ok {
		return tc
	}
	return tenant.Context{}
}
