package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

const zeroDigest = "0x0000000000000000000000000000000000000000000000000000000000000000"

// maxAttempts bounds the exhaust loop against servers with very high limits.
const maxAttempts = 1000

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers rate-limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^the response should carry rate limit headers$`, steps.responseCarriesHeaders)
	ctx.Step(`^I keep writing until the write limit is exhausted$`, steps.exhaustWriteLimit)
	ctx.Step(`^the response should ask me to retry later$`, steps.responseAsksForRetry)
}

type ratelimitSteps struct {
	tc TestContext
}

func (s *ratelimitSteps) responseCarriesHeaders(ctx context.Context) error {
	for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		if s.tc.GetLastResponseHeader(h) == "" {
			return fmt.Errorf("response is missing %s", h)
		}
	}
	return nil
}

// exhaustWriteLimit mints with an unregistered handle so every attempt is
// rejected by the registry but still counted against the caller's window.
func (s *ratelimitSteps) exhaustWriteLimit(ctx context.Context) error {
	body := map[string]interface{}{
		"handle":        "unregistered-handle",
		"names":         repeat(zeroDigest, 6),
		"date_of_birth": repeat(zeroDigest, 3),
	}
	for i := 0; i < maxAttempts; i++ {
		if err := s.tc.POST("/tokens", body); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() == 429 {
			return nil
		}
	}
	return fmt.Errorf("write limit not reached after %d attempts", maxAttempts)
}

func (s *ratelimitSteps) responseAsksForRetry(ctx context.Context) error {
	raw := s.tc.GetLastResponseHeader("Retry-After")
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 1 {
		return fmt.Errorf("expected a positive Retry-After header, got %q", raw)
	}
	return nil
}

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}
