package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flowsmith/socratic/internal/engine"
	"github.com/flowsmith/socratic/internal/enrich"
	"github.com/flowsmith/socratic/internal/knowledge"
	"github.com/flowsmith/socratic/internal/session"
)

// handleStartSession admits a new session and returns its opening question.
func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	domain := request.GetString("domain", "")

	sess, err := s.engine.StartSession(ctx, domain)
	if err != nil {
		if errors.Is(err, engine.ErrSessionLimit) {
			return mcp.NewToolResultError("active session limit reached; end a session before starting another"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to start session: %v", err)), nil
	}

	q, err := s.engine.NextQuestion(ctx, sess.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate question: %v", err)), nil
	}
	if q == nil {
		return mcp.NewToolResultText(fmt.Sprintf("Session %s started. Questioning is currently disabled.", sess.ID)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Session %s started.\n\n%s", sess.ID, formatQuestion(q))), nil
}

// handleNextQuestion generates the next question for a session.
func (s *Server) handleNextQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}

	q, err := s.engine.NextQuestion(ctx, sessionID)
	if err != nil {
		return s.engineError(err), nil
	}
	if q == nil {
		return mcp.NewToolResultText("No question available right now."), nil
	}
	return mcp.NewToolResultText(formatQuestion(q)), nil
}

// handleSubmitAnswer records an answer and returns the follow-up question.
func (s *Server) handleSubmitAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	answer, err := request.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: answer"), nil
	}

	res, err := s.engine.SubmitAnswer(ctx, sessionID, answer)
	if err != nil {
		if errors.Is(err, engine.ErrNoPendingQuestion) {
			return mcp.NewToolResultError("no pending question; call next_question first"), nil
		}
		return s.engineError(err), nil
	}

	var b strings.Builder
	if res.Expertise != nil {
		fmt.Fprintf(&b, "Inferred expertise: %s (confidence %.1f)\n\n", res.Expertise.Tier, res.Expertise.Confidence)
	}
	if res.Question != nil {
		b.WriteString(formatQuestion(res.Question))
	} else {
		b.WriteString("No follow-up question available.")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleEndSession ends a session.
func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}

	if err := s.engine.EndSession(ctx, sessionID); err != nil {
		return s.engineError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s ended.", sessionID)), nil
}

// handleSearchKnowledge searches the best-practice corpus.
func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	if s.knowledge == nil {
		return mcp.NewToolResultText("No knowledge base is configured. Run `socratic ingest` to index documents."), nil
	}

	res, err := s.knowledge.QueryMultipleSources(ctx, knowledge.Query{
		Text:              query,
		IncludeWebSearch:  true,
		IncludeMCPServers: true,
		Limit:             limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(res.Items) == 0 {
		return mcp.NewToolResultText("No results found. The knowledge base may be empty; run `socratic ingest` to index documents."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results:\n\n", len(res.Items))
	for i, item := range res.Items {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, item.Provider, item.Ref)
		if item.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", item.Snippet)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) engineError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return mcp.NewToolResultError("session not found")
	case errors.Is(err, engine.ErrUnavailable):
		return mcp.NewToolResultError("question generation temporarily unavailable; try again shortly")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func formatQuestion(q *enrich.EnrichedQuestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question (level %d): %s\n", q.Sophistication, q.Text)
	if len(q.Sources) > 0 {
		b.WriteString("\nRelevant references:\n")
		for _, src := range q.Sources {
			fmt.Fprintf(&b, "- [%s] %s\n", src.Provider, src.Ref)
		}
	}
	return b.String()
}
