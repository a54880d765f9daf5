package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/internal/runstore"
)

const (
	listRunsToolName = "list_runs"
	getRunToolName   = "get_run"

	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// registerRunTools exposes the recorded runs. Only called when a store is set.
func (s *Server) registerRunTools() {
	s.mcpServer.AddTool(mcp.NewTool(listRunsToolName,
		mcp.WithDescription("List recorded recipe runs, newest first."),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum records to return (default %d, max %d)", defaultRunsLimit, maxRunsLimit))),
	), s.handleListRuns)

	s.mcpServer.AddTool(mcp.NewTool(getRunToolName,
		mcp.WithDescription("Get one recorded run by its run_id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Run ID returned by list_runs")),
	), s.handleGetRun)
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := defaultRunsLimit
	if v, ok := request.GetArguments()["limit"]; ok && v != nil {
		n, err := cast.ToIntE(v)
		if err != nil || n <= 0 {
			return mcp.NewToolResultError(fmt.Sprintf("limit must be a positive integer, got %v", v)), nil
		}
		limit = min(n, maxRunsLimit)
	}

	recs, err := s.store.List(ctx, limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("list runs: %v", err)), nil
	}
	return jsonResult(recs)
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := request.GetArguments()["id"].(string)
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	rec, err := s.store.Get(ctx, id)
	switch {
	case errors.Is(err, runstore.ErrNotFound):
		return mcp.NewToolResultError("run not found: " + id), nil
	case err != nil:
		s.logger.Error("get run failed", zap.String("run_id", id), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("get run: %v", err)), nil
	}
	return jsonResult(rec)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
