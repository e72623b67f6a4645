// Package mcp exposes the questioning pipeline as MCP tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/flowsmith/socratic/internal/engine"
	"github.com/flowsmith/socratic/internal/knowledge"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server exposing questioning-session tools.
type Server struct {
	engine    *engine.Engine
	knowledge knowledge.Provider
	mcp       *server.MCPServer
}

// NewServer creates an MCP server around the questioning engine. The
// knowledge provider may be nil; search_knowledge then reports no results.
func NewServer(eng *engine.Engine, kp knowledge.Provider) *Server {
	s := &Server{
		engine:    eng,
		knowledge: kp,
	}

	s.mcp = server.NewMCPServer(
		"socratic",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(startSessionTool, s.handleStartSession)
	s.mcp.AddTool(nextQuestionTool, s.handleNextQuestion)
	s.mcp.AddTool(submitAnswerTool, s.handleSubmitAnswer)
	s.mcp.AddTool(endSessionTool, s.handleEndSession)
	s.mcp.AddTool(searchKnowledgeTool, s.handleSearchKnowledge)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
