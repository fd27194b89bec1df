package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/detachr/pkg/msglog"
)

// loggingMiddleware records every tool call in the message log. Only
// installed when a log is configured.
func (s *Server) loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := msglog.Now()
			result, err := next(ctx, req)

			logErr := err
			if logErr == nil && result != nil && result.IsError {
				logErr = toolError(result)
			}
			if werr := s.audit.Record(s.session.ID(), msglog.KindTool, req.Params.Name, 0,
				req.GetArguments(), start, responseBytes(result), logErr); werr != nil {
				s.logger.Warn("message log write failed", "tool", req.Params.Name, "error", werr)
			}

			return result, err
		}
	}
}

type toolErr string

func (e toolErr) Error() string { return string(e) }

// toolError extracts the message of an error result.
func toolError(result *mcp.CallToolResult) error {
	for _, c := range result.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			return toolErr(tc.Text)
		}
	}
	return toolErr("tool error")
}

// responseBytes returns the serialized size of a result's content, or 0
// for a nil result or on marshal error.
func responseBytes(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	b, err := json.Marshal(result.Content)
	if err != nil {
		return 0
	}
	return len(b)
}
