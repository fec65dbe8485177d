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
	"fmt"
	"strings"
)

// EmailDomainPolicy derives the tenant from the verified email's domain
// through an explicit domain→tenant map. Deployments that predate the
// tenant claim still rely on this; the map makes the assignment auditable
// instead of guessed from string parsing. Domains absent from the map are
// unresolvable, never defaulted.
func EmailDomainPolicy(domains map[string]string) TenantPolicy {
	// Normalize once at construction.
	normalized := make(map[string]string, len(domains))
	for domain, tenantID := range domains {
		normalized[strings.ToLower(domain)] = tenantID
	}

	return func(c Claims) (string, error) {
		at := strings.LastIndex(c.Email, "@")
		if at < 1 || at == len(c.Email)-1 {
			return "", fmt.Errorf("email %q has no usable domain", c.Email)
		}
		domain := strings.ToLower(c.Email[at+1:])

		tenantID, ok := normalized[domain]
		if !ok {
			return "", fmt.Errorf("domain %q is not mapped to a tenant", domain)
		}
		return tenantID, nil
	}
}
