package mcp

import "github.com/mark3labs/mcp-go/mcp"

// startSessionTool defines the start_session MCP tool.
var startSessionTool = mcp.NewTool("start_session",
	mcp.WithDescription("Start a requirement-elicitation session and get the opening question."),
	mcp.WithString("domain",
		mcp.Description("Workflow domain, e.g. 'chatbot' or 'data analysis'. Defaults to general."),
	),
)

// nextQuestionTool defines the next_question MCP tool.
var nextQuestionTool = mcp.NewTool("next_question",
	mcp.WithDescription("Generate the next question for an active session at its current sophistication level."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("ID of the session, as returned by start_session"),
	),
)

// submitAnswerTool defines the submit_answer MCP tool.
var submitAnswerTool = mcp.NewTool("submit_answer",
	mcp.WithDescription("Submit the user's answer to the pending question. Updates the expertise profile and returns the follow-up question."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("ID of the session"),
	),
	mcp.WithString("answer",
		mcp.Required(),
		mcp.Description("The user's answer text"),
	),
)

// endSessionTool defines the end_session MCP tool.
var endSessionTool = mcp.NewTool("end_session",
	mcp.WithDescription("End an active session and release its state."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("ID of the session"),
	),
)

// searchKnowledgeTool defines the search_knowledge MCP tool.
var searchKnowledgeTool = mcp.NewTool("search_knowledge",
	mcp.WithDescription("Search the ingested best-practice knowledge base."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)
