// Package mcp exposes the cookbook over the Model Context Protocol. Each recipe
// becomes one tool; list_recipes describes them all. With a run store, list_runs
// and get_run read back the recorded runs.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/internal/cookbook"
	"github.com/pocketomega/pocket-flow/internal/runstore"
)

const serverName = "pocketflow-mcp"

// Server wraps an MCP server whose tools run cookbook recipes.
type Server struct {
	registry  *cookbook.Registry
	env       cookbook.Env
	store     runstore.Store
	logger    *zap.Logger
	mcpServer *server.MCPServer
}

// NewServer registers one tool per recipe in registry. store may be nil, in
// which case runs are not recorded and the run tools are not registered.
func NewServer(registry *cookbook.Registry, env cookbook.Env, store runstore.Store, version string) *Server {
	logger := env.Logger
	if logger == nil {
		logger = zap.L()
	}
	s := &Server{
		registry:  registry,
		env:       env,
		store:     store,
		logger:    logger.With(zap.String("component", "mcp")),
		mcpServer: server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server, e.g. for an in-process client.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on Stdin/Stdout until the input closes.
func (s *Server) ServeStdio() error {
	tools := len(s.registry.List()) + 1
	if s.store != nil {
		tools += 2
	}
	s.logger.Info("MCP server listening on stdio",
		zap.Int("tools", tools),
		zap.Bool("recording", s.store != nil),
	)
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(listToolName,
		mcp.WithDescription("List the available recipes, their inputs and tool names."),
	), s.handleList)

	for _, rec := range s.registry.List() {
		s.mcpServer.AddTool(recipeTool(rec), s.recipeHandler(rec.Name))
	}
	if s.store != nil {
		s.registerRunTools()
	}
}

func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recipes := s.registry.List()
	out := make([]recipeInfo, 0, len(recipes))
	for _, rec := range recipes {
		out = append(out, recipeInfo{
			Name:        rec.Name,
			Tool:        ToolName(rec.Name),
			Description: rec.Description,
			Params:      rec.Params,
		})
	}
	return jsonResult(out)
}

// recipeHandler runs one recipe. Recipe failures are tool errors (IsError), not
// protocol errors, so the calling model can read them.
func (s *Server) recipeHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in, err := parseInput(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		run := func(ctx context.Context) (map[string]any, error) {
			return s.registry.Run(ctx, name, s.env, in)
		}
		var out map[string]any
		if s.store != nil {
			var rec runstore.Record
			rec, err = runstore.Track(ctx, s.store, s.logger, name, in, run)
			out = rec.Output
		} else {
			out, err = run(ctx)
		}
		if err != nil {
			s.logger.Warn("recipe failed", zap.String("recipe", name), zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(out)
	}
}
