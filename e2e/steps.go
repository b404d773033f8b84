package e2e

import (
	"github.com/cucumber/godog"

	"snowflake/e2e/steps/common"
	"snowflake/e2e/steps/identity"
	"snowflake/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register registry-specific steps (handles, minting, fields, attestations)
	identity.RegisterSteps(ctx, tc)

	// Register rate-limit steps
	ratelimit.RegisterSteps(ctx, tc)
}
