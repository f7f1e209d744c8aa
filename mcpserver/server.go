// Package mcpserver exposes the turn controller as an MCP stdio server
// with a single send_message tool.
package mcpserver

import (
	"context"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/careboard-ai/careboard/slogger"
	"github.com/careboard-ai/careboard/turn"
)

// New creates the MCP server. Replies produced during the turn are joined
// into the tool result.
func New(controller *turn.Controller, version string, logger slogger.Logger) *server.MCPServer {
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	s := server.NewMCPServer("careboard", version,
		server.WithToolCapabilities(false),
	)

	tool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a user message into a careboard conversation and return the agents' replies."),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation identifier; reuse it across messages to continue the same conversation."),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The user's message."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		conversationID, err := request.RequireString("conversation_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var (
			mu      sync.Mutex
			replies []string
		)
		turnErr := controller.HandleTurn(ctx, turn.Request{
			ConversationID: conversationID,
			UserText:       text,
			Reply: func(reply string) {
				mu.Lock()
				defer mu.Unlock()
				replies = append(replies, reply)
			},
		})
		if turnErr != nil {
			logger.Error("mcp turn failed", "conversation_id", conversationID, "error", turnErr)
			return mcp.NewToolResultError("turn failed: " + turnErr.Error()), nil
		}
		return mcp.NewToolResultText(strings.Join(replies, "\n\n")), nil
	})

	return s
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
