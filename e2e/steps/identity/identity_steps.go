package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	PUT(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	AdminPOST(path string, body interface{}) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	AddressOf(alias string) string
	HandleFor(handle string) string
	Saved(key string) (string, error)
}

// RegisterSteps registers handle, mint, field and attestation step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &identitySteps{tc: tc}

	// Registration authority
	ctx.Step(`^handle "([^"]*)" is signed up for "([^"]*)"$`, steps.handleSignedUp)

	// Minting
	ctx.Step(`^I mint a token with handle "([^"]*)"$`, steps.mint)
	ctx.Step(`^I mint a token with handle "([^"]*)" and (\d+) names$`, steps.mintWithNames)

	// Lookups
	ctx.Step(`^I look up the token of handle "([^"]*)"$`, steps.lookupByHandle)
	ctx.Step(`^I look up the token of "([^"]*)"$`, steps.lookupByAddress)
	ctx.Step(`^I look up the owner of token "([^"]*)"$`, steps.lookupOwner)
	ctx.Step(`^I read entry "([^"]*)" of field (\d+) on token "([^"]*)"$`, steps.readEntry)

	// Fields, resolvers and attestations
	ctx.Step(`^I add a field to token "([^"]*)" with entries:$`, steps.addField)
	ctx.Step(`^I update field (\d+) of token "([^"]*)" with entries:$`, steps.updateField)
	ctx.Step(`^I add "([^"]*)" as a resolver of token "([^"]*)"$`, steps.addResolver)
	ctx.Step(`^I attest entry "([^"]*)" of field (\d+) on token "([^"]*)" as "([^"]*)"$`, steps.attest)
	ctx.Step(`^the entry should have (\d+) attestations?$`, steps.entryShouldHaveAttestations)
}

type identitySteps struct {
	tc TestContext
}

func (s *identitySteps) handleSignedUp(ctx context.Context, handle, alias string) error {
	body := map[string]interface{}{
		"handle":  s.tc.HandleFor(handle),
		"address": s.tc.AddressOf(alias),
	}
	if err := s.tc.AdminPOST("/admin/handles", body); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("sign up returned %d: %s", status, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *identitySteps) mint(ctx context.Context, handle string) error {
	return s.mintWithNames(ctx, handle, 6)
}

func (s *identitySteps) mintWithNames(ctx context.Context, handle string, n int) error {
	names := make([]string, n)
	for i := range names {
		names[i] = digestOf("name-" + strconv.Itoa(i))
	}
	body := map[string]interface{}{
		"handle":        s.tc.HandleFor(handle),
		"names":         names,
		"date_of_birth": []string{digestOf("1"), digestOf("2"), digestOf("1990")},
	}
	return s.tc.POST("/tokens", body)
}

func (s *identitySteps) lookupByHandle(ctx context.Context, handle string) error {
	return s.tc.GET("/handles/"+url.PathEscape(s.tc.HandleFor(handle))+"/token", nil)
}

func (s *identitySteps) lookupByAddress(ctx context.Context, alias string) error {
	return s.tc.GET("/addresses/"+s.tc.AddressOf(alias)+"/token", nil)
}

func (s *identitySteps) lookupOwner(ctx context.Context, tokenKey string) error {
	path, err := s.tokenPath(tokenKey)
	if err != nil {
		return err
	}
	return s.tc.GET(path+"/owner", nil)
}

func (s *identitySteps) readEntry(ctx context.Context, key string, index int, tokenKey string) error {
	path, err := s.entryPath(tokenKey, index, key)
	if err != nil {
		return err
	}
	return s.tc.GET(path, nil)
}

func (s *identitySteps) addField(ctx context.Context, tokenKey string, table *godog.Table) error {
	path, err := s.tokenPath(tokenKey)
	if err != nil {
		return err
	}
	keys, values, err := entriesFromTable(table)
	if err != nil {
		return err
	}
	return s.tc.POST(path+"/fields", map[string]interface{}{"keys": keys, "values": values})
}

func (s *identitySteps) updateField(ctx context.Context, index int, tokenKey string, table *godog.Table) error {
	path, err := s.tokenPath(tokenKey)
	if err != nil {
		return err
	}
	keys, values, err := entriesFromTable(table)
	if err != nil {
		return err
	}
	return s.tc.PUT(fmt.Sprintf("%s/fields/%d/entries", path, index), map[string]interface{}{"keys": keys, "values": values})
}

func (s *identitySteps) addResolver(ctx context.Context, alias, tokenKey string) error {
	path, err := s.tokenPath(tokenKey)
	if err != nil {
		return err
	}
	return s.tc.POST(path+"/resolvers", map[string]interface{}{"resolver": s.tc.AddressOf(alias)})
}

func (s *identitySteps) attest(ctx context.Context, key string, index int, tokenKey, status string) error {
	path, err := s.entryPath(tokenKey, index, key)
	if err != nil {
		return err
	}
	return s.tc.POST(path+"/attestations", map[string]interface{}{"status": status})
}

func (s *identitySteps) entryShouldHaveAttestations(ctx context.Context, n int) error {
	var body struct {
		Attestations []json.RawMessage `json:"attestations"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}
	if len(body.Attestations) != n {
		return fmt.Errorf("expected %d attestations, got %d: %s", n, len(body.Attestations), s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *identitySteps) tokenPath(tokenKey string) (string, error) {
	id, err := s.tc.Saved(tokenKey)
	if err != nil {
		return "", err
	}
	return "/tokens/" + id, nil
}

func (s *identitySteps) entryPath(tokenKey string, index int, key string) (string, error) {
	path, err := s.tokenPath(tokenKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/fields/%d/entries/%s", path, index, url.PathEscape(key)), nil
}

// digestOf stands in for the client-side salted hash. The registry only
// checks that values are 32-byte digests.
func digestOf(value string) string {
	sum := sha256.Sum256([]byte(value))
	return "0x" + hex.EncodeToString(sum[:])
}

// entriesFromTable reads a | key | value | table, skipping the header row.
// Values are digested before they are sent.
func entriesFromTable(table *godog.Table) ([]string, []string, error) {
	if len(table.Rows) < 2 {
		return nil, nil, fmt.Errorf("entries table needs a header and at least one row")
	}
	keys := make([]string, 0, len(table.Rows)-1)
	values := make([]string, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != 2 {
			return nil, nil, fmt.Errorf("entries table rows need exactly two cells")
		}
		keys = append(keys, row.Cells[0].Value)
		values = append(values, digestOf(row.Cells[1].Value))
	}
	return keys, values, nil
}
