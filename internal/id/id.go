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

// Package id generates record identifiers.
package id

import "github.com/google/uuid"

// NewUUIDv7 returns a time-ordered UUID string. v7 keeps newly inserted
// records clustered at the tail of the (created_at, record_id) index order.
func NewUUIDv7() string {
	u, err := uuid.NewV7()
	if err != nil {
		// v7 generation only fails when the entropy source does; fall back
		// to v4 rather than propagating an error through every caller.
		return uuid.NewString()
	}
	return u.String()
}
