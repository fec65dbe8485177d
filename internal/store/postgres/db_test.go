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

package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         "5432",
		User:         "vendasol",
		Password:     "pw",
		Database:     "vendasol",
		SSLMode:      "disable",
		MaxOpenConns: 25,
		MaxIdleConns: 5,
	}
}

func TestBuildPoolConfig_AppliesPoolSettings(t *testing.T) {
	cfg := testConfig()
	cfg.ConnMaxLifetime = 5 * time.Minute

	poolConfig, err := buildPoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(25), poolConfig.MaxConns)
	assert.Equal(t, int32(5), poolConfig.MinConns)
	assert.Equal(t, 5*time.Minute, poolConfig.MaxConnLifetime)
	assert.Equal(t, "vendasol", poolConfig.ConnConfig.Database)
	assert.Equal(t, "localhost", poolConfig.ConnConfig.Host)
}

func TestBuildPoolConfig_ZeroLifetimeKeepsDriverDefault(t *testing.T) {
	poolConfig, err := buildPoolConfig(testConfig())
	require.NoError(t, err)

	// pgxpool's own default, not zero: an unset lifetime must not disable
	// connection recycling.
	assert.Positive(t, poolConfig.MaxConnLifetime)
}
