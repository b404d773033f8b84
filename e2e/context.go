package e2e

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestContext carries per-scenario state against a running snowflake server.
// Participants are referred to by alias in feature files; each scenario gets
// fresh random addresses and handle suffixes so runs never collide.
type TestContext struct {
	baseURL    string
	adminToken string
	signingKey []byte
	issuer     string
	audience   string
	client     *http.Client

	suffix    string
	addresses map[string]string
	saved     map[string]string
	caller    string

	lastStatus  int
	lastBody    []byte
	lastHeaders http.Header
}

// NewTestContext reads the target server settings from the environment. The
// defaults match the server's development configuration.
func NewTestContext() *TestContext {
	return &TestContext{
		baseURL:    getenv("SNOWFLAKE_E2E_BASE_URL", "http://localhost:8080"),
		adminToken: getenv("SNOWFLAKE_ADMIN_TOKEN", "e2e-admin-token"),
		signingKey: []byte(getenv("SNOWFLAKE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production")),
		issuer:     getenv("SNOWFLAKE_JWT_ISSUER", "snowflake"),
		audience:   getenv("SNOWFLAKE_JWT_AUDIENCE", "snowflake-api"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Reset clears scenario state.
func (tc *TestContext) Reset() {
	tc.suffix = randomHex(4)
	tc.addresses = map[string]string{}
	tc.saved = map[string]string{}
	tc.caller = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeaders = nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// AddressOf returns the scenario address for alias, allocating one on first use.
func (tc *TestContext) AddressOf(alias string) string {
	if addr, ok := tc.addresses[alias]; ok {
		return addr
	}
	addr := "0x" + randomHex(20)
	tc.addresses[alias] = addr
	return addr
}

// HandleFor scopes a feature-file handle to this scenario.
func (tc *TestContext) HandleFor(handle string) string {
	return handle + tc.suffix
}

// ActAs makes alias the bearer of subsequent requests. An empty alias sends
// requests without credentials.
func (tc *TestContext) ActAs(alias string) {
	tc.caller = alias
}

// Save stores a value for later path expansion as {key}.
func (tc *TestContext) Save(key, value string) {
	tc.saved[key] = value
}

// Saved returns a previously stored value.
func (tc *TestContext) Saved(key string) (string, error) {
	v, ok := tc.saved[key]
	if !ok {
		return "", fmt.Errorf("nothing saved as %q", key)
	}
	return v, nil
}

// Expand substitutes {key} placeholders in path with saved values.
func (tc *TestContext) Expand(path string) string {
	for k, v := range tc.saved {
		path = strings.ReplaceAll(path, "{"+k+"}", v)
	}
	return path
}

func (tc *TestContext) bearer(alias string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   tc.AddressOf(alias),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		Issuer:    tc.issuer,
		Audience:  []string{tc.audience},
	})
	return token.SignedString(tc.signingKey)
}

// POST sends body as JSON to path.
func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.Do(http.MethodPost, path, body, nil)
}

// PUT sends body as JSON to path.
func (tc *TestContext) PUT(path string, body interface{}) error {
	return tc.Do(http.MethodPut, path, body, nil)
}

// GET fetches path with optional extra headers.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.Do(http.MethodGet, path, nil, headers)
}

// AdminPOST sends body to an operator route with the admin token.
func (tc *TestContext) AdminPOST(path string, body interface{}) error {
	return tc.Do(http.MethodPost, path, body, map[string]string{"X-Admin-Token": tc.adminToken})
}

// Do performs a request and records the response. Transport failures are
// returned; HTTP error statuses are left for assertions.
func (tc *TestContext) Do(method, path string, body interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.caller != "" {
		token, err := tc.bearer(tc.caller)
		if err != nil {
			return fmt.Errorf("sign bearer token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	return nil
}

// GetLastResponseStatus returns the status of the most recent request.
func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

// GetLastResponseBody returns the body of the most recent request.
func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

// GetLastResponseHeader returns a header of the most recent response.
func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.lastHeaders == nil {
		return ""
	}
	return tc.lastHeaders.Get(name)
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w (body: %s)", err, tc.lastBody)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q (body: %s)", field, tc.lastBody)
	}
	return v, nil
}
