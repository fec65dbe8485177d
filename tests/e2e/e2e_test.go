//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseURL    = getEnv("VENDASOL_API_URL", "http://127.0.0.1:8080")
	jwtSecret  = getEnv("VENDASOL_E2E_JWT_SECRET", "e2e-dev-secret")
	issuer     = getEnv("VENDASOL_E2E_ISSUER", "https://idp.vendasol.test")
	cookieName = getEnv("VENDASOL_E2E_COOKIE", "vendasol_session")
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// TestClient is an HTTP client holding one tenant's session cookie. The
// server must be running with IDENTITY_JWT_SECRET matching jwtSecret.
type TestClient struct {
	httpClient *http.Client
	token      string
}

func NewTestClient(t *testing.T, tenantID, subject string) *TestClient {
	t.Helper()

	jar, _ := cookiejar.New(nil)
	c := &TestClient{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}

	if tenantID != "" {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":    subject,
			"tenant": tenantID,
			"iss":    issuer,
			"exp":    time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(jwtSecret))
		require.NoError(t, err)
		c.token = signed
	}

	return c
}

func (c *TestClient) Get(path string) (*http.Response, error) {
	req, _ := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: c.token})
	}
	return c.httpClient.Do(req)
}

type envelope struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Data    []map[string]any `json:"data"`
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestE2E_Workflows(t *testing.T) {
	t.Run("Health Check", func(t *testing.T) {
		client := NewTestClient(t, "", "")
		resp, err := client.Get("/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Unauthenticated List Rejected", func(t *testing.T) {
		client := NewTestClient(t, "", "")
		resp, err := client.Get("/documentos/cliente/c-100")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		env := decode(t, resp)
		assert.Equal(t, "error", env.Status)
		assert.Equal(t, "not authenticated", env.Message)
	})

	t.Run("Authenticated List Flow", func(t *testing.T) {
		// Assumes `seed` has been run against the server's database: acme
		// holds two documentos under cliente c-100, globex holds one.
		acme := NewTestClient(t, "acme", "u-e2e-acme")
		resp, err := acme.Get("/documentos/cliente/c-100")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		env := decode(t, resp)
		assert.Equal(t, "success", env.Status)
		assert.Len(t, env.Data, 2)

		globex := NewTestClient(t, "globex", "u-e2e-globex")
		resp, err = globex.Get("/documentos/cliente/c-100")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		env = decode(t, resp)
		assert.Equal(t, "success", env.Status)
		assert.Len(t, env.Data, 1, "tenants sharing a relation value must not see each other's records")
	})

	t.Run("Empty Relation Returns Success", func(t *testing.T) {
		client := NewTestClient(t, "acme", "u-e2e-acme")
		resp, err := client.Get("/tarefas/quadro/b-does-not-exist")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		env := decode(t, resp)
		assert.Equal(t, "success", env.Status)
		assert.Empty(t, env.Data)
	})

	t.Run("Unknown Entity Returns Not Found", func(t *testing.T) {
		client := NewTestClient(t, "acme", "u-e2e-acme")
		resp, err := client.Get("/faturas/cliente/c-100")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		_ = decode(t, resp)
	})
}
