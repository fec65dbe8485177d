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

// Package session turns an inbound request credential into a verified
// tenant context. Verification is delegated to an external identity
// provider; tenant derivation is a swappable policy over the verified
// claims. The resolver fails closed: no verified credential, no tenant,
// no data access.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/vendasol/vendasol/internal/tenant"
)

// Domain errors
var (
	// ErrUnauthenticated covers missing, expired and unverifiable
	// credentials. Mapped to 401 at the boundary.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrTenantUnresolvable means the identity verified but no tenant could
	// be derived from it. Distinct from ErrUnauthenticated: the identity is
	// valid but unusable. Mapped to 404 at the boundary.
	ErrTenantUnresolvable = errors.New("tenant not resolvable")
)

// Claims is the subject information the identity provider vouches for.
type Claims struct {
	Subject string
	Email   string
	Tenant  string // empty when the provider issues no tenant claim
	Role    string
}

// Verifier is the identity provider capability: it checks a raw credential
// and returns the claims it certifies. Implementations must be safe for
// concurrent use and honor context cancellation.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Claims, error)
}

// TenantPolicy derives the authoritative tenant id from verified claims.
// It never sees raw request data. Returning an empty id or an error means
// the tenant is unresolvable.
type TenantPolicy func(Claims) (string, error)

// ClaimPolicy reads the tenant id straight from the provider's tenant
// claim. This is the default policy.
func ClaimPolicy() TenantPolicy {
	return func(c Claims) (string, error) {
		if c.Tenant == "" {
			return "", fmt.Errorf("no tenant claim present")
		}
		return c.Tenant, nil
	}
}

// Resolver produces a tenant.Context from a raw request credential.
// One verification call per request, no caching between requests.
type Resolver struct {
	verifier Verifier
	policy   TenantPolicy
}

// NewResolver creates a resolver. A nil policy defaults to ClaimPolicy.
func NewResolver(verifier Verifier, policy TenantPolicy) *Resolver {
	if policy == nil {
		policy = ClaimPolicy()
	}
	return &Resolver{verifier: verifier, policy: policy}
}

// Resolve verifies the credential and derives the tenant context.
//
// The returned context is the only legitimate source of a tenant id for the
// rest of the request. Resolve has no side effects beyond the verification
// call and is safe to invoke once per request.
func (r *Resolver) Resolve(ctx context.Context, credential string) (tenant.Context, error) {
	if credential == "" {
		return tenant.Context{}, ErrUnauthenticated
	}

	claims, err := r.verifier.Verify(ctx, credential)
	if err != nil {
		return tenant.Context{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return tenant.Context{}, fmt.Errorf("%w: provider returned no subject", ErrUnauthenticated)
	}

	tenantID, err := r.policy(claims)
	if err != nil {
		return tenant.Context{}, fmt.Errorf("%w: %v", ErrTenantUnresolvable, err)
	}
	if tenantID == "" {
		return tenant.Context{}, ErrTenantUnresolvable
	}

	tc := tenant.Context{
		TenantID: tenantID,
		UserID:   claims.Subject,
		Email:    claims.Email,
		Role:     claims.Role,
	}
	if !tc.Valid() {
		return tenant.Context{}, ErrTenantUnresolvable
	}
	return tc, nil
}
