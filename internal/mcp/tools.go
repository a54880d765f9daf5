package mcp

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pocketomega/pocket-flow/internal/cookbook"
)

const (
	listToolName = "list_recipes"
	toolPrefix   = "recipe_"
)

type recipeInfo struct {
	Name        string            `json:"name"`
	Tool        string            `json:"tool"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params,omitempty"`
}

// ToolName maps a recipe name to its MCP tool name: recipe_<name> with dashes
// replaced by underscores, e.g. "page-digest" -> "recipe_page_digest".
func ToolName(recipe string) string {
	return toolPrefix + strings.ReplaceAll(recipe, "-", "_")
}

func recipeTool(rec cookbook.Recipe) mcp.Tool {
	return mcp.NewTool(ToolName(rec.Name),
		mcp.WithDescription(describe(rec)),
		mcp.WithObject("input",
			mcp.Description("Recipe input as a JSON object. Omitted keys take their defaults."),
		),
	)
}

// describe appends the documented inputs to the recipe description so the
// model can see them without calling list_recipes.
func describe(rec cookbook.Recipe) string {
	if len(rec.Params) == 0 {
		return rec.Description
	}
	keys := make([]string, 0, len(rec.Params))
	for k := range rec.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(rec.Description)
	b.WriteString(" Inputs:")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s (default %s);", k, rec.Params[k])
	}
	return strings.TrimSuffix(b.String(), ";")
}

// parseInput accepts the "input" argument either as an object or as a JSON
// string; clients differ in which they send.
func parseInput(args map[string]any) (cookbook.Input, error) {
	raw, ok := args["input"]
	if !ok || raw == nil {
		return cookbook.Input{}, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return cookbook.Input{}, nil
		}
		var in cookbook.Input
		if err := json.Unmarshal([]byte(v), &in); err != nil {
			return nil, fmt.Errorf("input must be a JSON object: %w", err)
		}
		return in, nil
	default:
		return nil, fmt.Errorf("input must be a JSON object, got %T", raw)
	}
}
