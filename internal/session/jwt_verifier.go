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

package session

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifierConfig configures signature and claim validation for tokens
// issued by the external identity provider.
type JWTVerifierConfig struct {
	Issuer   string
	Audience string

	// Exactly one of HMACSecret or PublicKey must be set.
	HMACSecret []byte
	PublicKey  *rsa.PublicKey

	// TenantClaim is the claim carrying the tenant id. Defaults to "tenant".
	TenantClaim string
	// RoleClaim is the claim carrying the user role. Defaults to "role".
	RoleClaim string
}

// JWTVerifier validates provider-issued JWTs locally against the provider's
// signing key. It treats the credential as opaque beyond being a compact
// JWT: expiry, issuer and audience are enforced by the parser.
type JWTVerifier struct {
	cfg    JWTVerifierConfig
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier for RS256 or HS256 tokens.
func NewJWTVerifier(cfg JWTVerifierConfig) (*JWTVerifier, error) {
	if (cfg.HMACSecret == nil) == (cfg.PublicKey == nil) {
		return nil, fmt.Errorf("exactly one of HMAC secret or RSA public key must be configured")
	}
	if cfg.TenantClaim == "" {
		cfg.TenantClaim = "tenant"
	}
	if cfg.RoleClaim == "" {
		cfg.RoleClaim = "role"
	}

	method := jwt.WithValidMethods([]string{"RS256"})
	if cfg.HMACSecret != nil {
		method = jwt.WithValidMethods([]string{"HS256"})
	}

	opts := []jwt.ParserOption{method, jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWTVerifier{cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

// Verify parses and validates the token and maps its claims.
func (v *JWTVerifier) Verify(ctx context.Context, credential string) (Claims, error) {
	if err := ctx.Err(); err != nil {
		return Claims{}, err
	}

	mapClaims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(credential, mapClaims, v.keyFunc)
	if err != nil {
		return Claims{}, fmt.Errorf("token verification failed: %w", err)
	}

	sub, _ := mapClaims.GetSubject()
	return Claims{
		Subject: sub,
		Email:   stringClaim(mapClaims, "email"),
		Tenant:  stringClaim(mapClaims, v.cfg.TenantClaim),
		Role:    stringClaim(mapClaims, v.cfg.RoleClaim),
	}, nil
}

func (v *JWTVerifier) keyFunc(*jwt.Token) (any, error) {
	if v.cfg.HMACSecret != nil {
		return v.cfg.HMACSecret, nil
	}
	return v.cfg.PublicKey, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	if s, ok := claims[name].(string); ok {
		return s
	}
	return ""
}
