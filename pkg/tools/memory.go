package tools

// The memory tool suite is the request/response surface an agent runtime
// sees: recall, store, forget, evolve. Outcomes that are part of normal
// operation (nothing found, duplicate, ambiguous target) come back as
// structured JSON results; only real I/O faults surface as Go errors.

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/theapemachine/mnemo/pkg/capture"
	errs "github.com/theapemachine/mnemo/pkg/errors"
	"github.com/theapemachine/mnemo/pkg/ledger"
)

const (
	defaultRecallLimit   = 5
	forgetCandidateLimit = 5
)

/*
MemoryToolSuite binds the four memory tools to one ledger store.
*/
type MemoryToolSuite struct {
	store *ledger.Store
}

func NewMemoryToolSuite(store *ledger.Store) (*MemoryToolSuite, error) {
	if store == nil {
		return nil, errs.NewError("memory tools", errs.ErrMissingStore{})
	}
	return &MemoryToolSuite{store: store}, nil
}

// Register attaches all memory tools to the supplied MCP server instance.
func (suite *MemoryToolSuite) Register(srv *server.MCPServer) {
	srv.AddTool(buildRecallTool(), suite.handleRecall)
	srv.AddTool(buildStoreTool(), suite.handleStore)
	srv.AddTool(buildForgetTool(), suite.handleForget)
	srv.AddTool(buildEvolveTool(), suite.handleEvolve)
}

// ---------------------------------------------------------------------------
// Tool builders (schema only, no execution logic)
// ---------------------------------------------------------------------------

func buildRecallTool() mcp.Tool {
	return mcp.NewTool(
		"memory_recall",
		mcp.WithDescription("Searches stored memories for a query and returns the best matches, ranked."),
		mcp.WithString("query",
			mcp.Description("Free-text query to match against stored memories"),
			mcp.Required(),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of matches to return (default 5)"),
		),
	)
}

func buildStoreTool() mcp.Tool {
	return mcp.NewTool(
		"memory_store",
		mcp.WithDescription("Stores one memory entry. Near-duplicates of existing entries are reported, not stored twice."),
		mcp.WithString("text",
			mcp.Description("The statement to remember, one line of plain text"),
			mcp.Required(),
		),
		mcp.WithString("category",
			mcp.Description("Classification of the memory; detected from the text when omitted"),
			mcp.Enum("preference", "fact", "decision", "entity", "other"),
		),
		mcp.WithArray("tags",
			mcp.Description("Optional tags to attach (array of strings, or one comma-separated string)"),
		),
	)
}

func buildForgetTool() mcp.Tool {
	return mcp.NewTool(
		"memory_forget",
		mcp.WithDescription("Deletes a memory by id, or by query when exactly one entry matches. Ambiguous queries return the candidates instead of deleting."),
		mcp.WithString("id",
			mcp.Description("Id of the entry to delete"),
		),
		mcp.WithString("query",
			mcp.Description("Free-text query identifying the entry when the id is unknown"),
		),
	)
}

func buildEvolveTool() mcp.Tool {
	return mcp.NewTool(
		"memory_evolve",
		mcp.WithDescription("Mines recent task failures for recurring themes and persists them as cautionary rules. Returns only newly derived rules."),
	)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (suite *MemoryToolSuite) handleRecall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return statusResult("missing_parameter", "query parameter is required")
	}

	limit := coerceInt(args["limit"], defaultRecallLimit)

	entries, err := suite.store.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return statusResult("no_matches", "no stored memories match the query")
	}

	return jsonResult(map[string]any{
		"query":    query,
		"count":    len(entries),
		"memories": entries,
	})
}

func (suite *MemoryToolSuite) handleStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	text, _ := args["text"].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return statusResult("missing_parameter", "text parameter is required")
	}

	rawCategory, _ := args["category"].(string)
	var category ledger.Category
	if rawCategory == "" {
		category = capture.DetectCategory(text)
	} else {
		category = ledger.ParseCategory(rawCategory)
	}

	tags := coerceStringList(args["tags"])

	dup, err := suite.store.HasDuplicate(text)
	if err != nil {
		return nil, err
	}
	if dup {
		return statusResult("duplicate", "a near-duplicate of this text is already stored")
	}

	entry, err := suite.store.Store(category, text, tags...)
	if err != nil {
		return nil, err
	}

	return jsonResult(map[string]any{
		"status": "stored",
		"memory": entry,
	})
}

func (suite *MemoryToolSuite) handleForget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, _ := args["id"].(string)
	query, _ := args["query"].(string)

	if id != "" {
		removed, err := suite.store.Delete(id)
		if err != nil {
			return nil, err
		}
		if !removed {
			return statusResult("not_found", "no memory entry has that id")
		}
		return jsonResult(map[string]any{"status": "deleted", "id": id})
	}

	if strings.TrimSpace(query) == "" {
		return statusResult("missing_parameter", "either id or query is required")
	}

	matches, err := suite.store.CandidatesFor(query, forgetCandidateLimit)
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return statusResult("not_found", "no stored memories match the query")
	case 1:
		removed, err := suite.store.Delete(matches[0].ID)
		if err != nil {
			return nil, err
		}
		if !removed {
			return statusResult("not_found", "the matching entry disappeared before deletion")
		}
		return jsonResult(map[string]any{"status": "deleted", "id": matches[0].ID})
	default:
		return jsonResult(map[string]any{
			"status":     "ambiguous",
			"message":    "multiple memories match; delete by id instead",
			"candidates": matches,
		})
	}
}

func (suite *MemoryToolSuite) handleEvolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules, err := suite.store.Evolve()
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []ledger.EvolutionRule{}
	}

	return jsonResult(map[string]any{
		"count": len(rules),
		"rules": rules,
	})
}

// ---------------------------------------------------------------------------
// Result and argument plumbing
// ---------------------------------------------------------------------------

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

func statusResult(status, message string) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]string{"status": status, "message": message})
}

// coerceInt accepts the number as float64 (JSON), int, or numeric string.
func coerceInt(raw any, fallback int) int {
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// coerceStringList accepts an array of strings or one comma-separated string.
func coerceStringList(raw any) []string {
	switch v := raw.(type) {
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return nil
}
