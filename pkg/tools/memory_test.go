package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/theapemachine/mnemo/pkg/errors"
	"github.com/theapemachine/mnemo/pkg/ledger"
)

func newTestSuite(t *testing.T) (*MemoryToolSuite, *ledger.Store) {
	t.Helper()
	store, err := ledger.NewStore(t.TempDir())
	require.NoError(t, err)
	suite, err := NewMemoryToolSuite(store)
	require.NoError(t, err)
	return suite, store
}

func callReq(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	text := result.Content[0].(mcp.TextContent).Text
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	return decoded
}

func TestNewMemoryToolSuite(t *testing.T) {
	_, err := NewMemoryToolSuite(nil)
	assert.True(t, errors.Is(err, errs.ErrMissingStore{}))
}

func TestRecallTool(t *testing.T) {
	suite, store := newTestSuite(t)
	ctx := context.Background()

	// Missing query is a structured outcome, not a Go error
	result, err := suite.handleRecall(ctx, callReq("memory_recall", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "missing_parameter", resultJSON(t, result)["status"])

	// Nothing stored yet
	result, err = suite.handleRecall(ctx, callReq("memory_recall", map[string]any{"query": "dark mode"}))
	require.NoError(t, err)
	assert.Equal(t, "no_matches", resultJSON(t, result)["status"])

	_, err = store.Store(ledger.CategoryPreference, "prefers dark mode in all editors")
	require.NoError(t, err)
	_, err = store.Store(ledger.CategoryFact, "the staging cluster runs postgres")
	require.NoError(t, err)

	result, err = suite.handleRecall(ctx, callReq("memory_recall", map[string]any{"query": "dark mode"}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.EqualValues(t, 1, payload["count"])
	memories := payload["memories"].([]any)
	require.Len(t, memories, 1)
	assert.Equal(t, "prefers dark mode in all editors", memories[0].(map[string]any)["text"])

	// Limit arrives as float64 over JSON, and is honored
	_, err = store.Store(ledger.CategoryOther, "dark chocolate is acceptable fuel")
	require.NoError(t, err)

	result, err = suite.handleRecall(ctx, callReq("memory_recall", map[string]any{"query": "dark", "limit": float64(1)}))
	require.NoError(t, err)
	assert.EqualValues(t, 1, resultJSON(t, result)["count"])
}

func TestStoreTool(t *testing.T) {
	suite, store := newTestSuite(t)
	ctx := context.Background()

	result, err := suite.handleStore(ctx, callReq("memory_store", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "missing_parameter", resultJSON(t, result)["status"])

	// Category detected from the text when omitted
	result, err = suite.handleStore(ctx, callReq("memory_store", map[string]any{
		"text": "I prefer tabs over spaces",
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, "stored", payload["status"])
	memory := payload["memory"].(map[string]any)
	assert.Equal(t, "preference", memory["category"])
	assert.NotEmpty(t, memory["id"])

	// Storing again reports the duplicate instead of writing a second line
	result, err = suite.handleStore(ctx, callReq("memory_store", map[string]any{
		"text": "I prefer tabs over spaces",
	}))
	require.NoError(t, err)
	assert.Equal(t, "duplicate", resultJSON(t, result)["status"])

	entries, err := store.ListAll()
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Explicit category and tags as a JSON array
	result, err = suite.handleStore(ctx, callReq("memory_store", map[string]any{
		"text":     "the api gateway lives behind cloudflare",
		"category": "fact",
		"tags":     []any{"infra", "network"},
	}))
	require.NoError(t, err)

	memory = resultJSON(t, result)["memory"].(map[string]any)
	assert.Equal(t, "fact", memory["category"])

	stored, err := store.FindByID(memory["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, []string{"infra", "network"}, stored.Tags)

	// Tags as one comma-separated string coerce the same way
	result, err = suite.handleStore(ctx, callReq("memory_store", map[string]any{
		"text": "we decided to ship on thursdays",
		"tags": "process, cadence",
	}))
	require.NoError(t, err)

	memory = resultJSON(t, result)["memory"].(map[string]any)
	stored, err = store.FindByID(memory["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, []string{"process", "cadence"}, stored.Tags)
}

func TestForgetTool(t *testing.T) {
	suite, store := newTestSuite(t)
	ctx := context.Background()

	result, err := suite.handleForget(ctx, callReq("memory_forget", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "missing_parameter", resultJSON(t, result)["status"])

	entry, err := store.Store(ledger.CategoryFact, "the retro board lives in miro")
	require.NoError(t, err)

	// Unknown id
	result, err = suite.handleForget(ctx, callReq("memory_forget", map[string]any{"id": "deadbeef"}))
	require.NoError(t, err)
	assert.Equal(t, "not_found", resultJSON(t, result)["status"])

	// Delete by id
	result, err = suite.handleForget(ctx, callReq("memory_forget", map[string]any{"id": entry.ID}))
	require.NoError(t, err)
	assert.Equal(t, "deleted", resultJSON(t, result)["status"])

	entries, err := store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestForgetToolByQuery(t *testing.T) {
	suite, store := newTestSuite(t)
	ctx := context.Background()

	_, err := store.Store(ledger.CategoryFact, "the retro board lives in miro")
	require.NoError(t, err)
	_, err = store.Store(ledger.CategoryFact, "the roadmap lives in linear")
	require.NoError(t, err)

	// A unique match deletes directly
	result, err := suite.handleForget(ctx, callReq("memory_forget", map[string]any{"query": "retro miro"}))
	require.NoError(t, err)
	assert.Equal(t, "deleted", resultJSON(t, result)["status"])

	entries, err := store.ListAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Text, "roadmap")

	// Multiple matches return the candidates instead of deleting anything
	_, err = store.Store(ledger.CategoryFact, "the escalation runbook lives in notion")
	require.NoError(t, err)

	result, err = suite.handleForget(ctx, callReq("memory_forget", map[string]any{"query": "lives"}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, "ambiguous", payload["status"])
	assert.Len(t, payload["candidates"].([]any), 2)

	entries, err = store.ListAll()
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// No match at all
	result, err = suite.handleForget(ctx, callReq("memory_forget", map[string]any{"query": "zzzzz"}))
	require.NoError(t, err)
	assert.Equal(t, "not_found", resultJSON(t, result)["status"])
}

func TestEvolveTool(t *testing.T) {
	suite, store := newTestSuite(t)
	ctx := context.Background()

	// Nothing to mine on an empty log
	result, err := suite.handleEvolve(ctx, callReq("memory_evolve", nil))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.EqualValues(t, 0, payload["count"])
	assert.Empty(t, payload["rules"])

	_, err = store.LogTask("docker build broke", false, 0)
	require.NoError(t, err)
	_, err = store.LogTask("docker push rejected", false, 0)
	require.NoError(t, err)

	result, err = suite.handleEvolve(ctx, callReq("memory_evolve", nil))
	require.NoError(t, err)

	payload = resultJSON(t, result)
	assert.EqualValues(t, 1, payload["count"])
	rules := payload["rules"].([]any)
	require.Len(t, rules, 1)
	assert.Contains(t, rules[0].(map[string]any)["rule"], `"docker"`)
}
