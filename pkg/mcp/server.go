// Package mcp exposes a detach session as MCP tools over stdio.
package mcp

import (
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/detachr/pkg/msglog"
	"github.com/gnana997/detachr/pkg/session"
)

const serverVersion = "0.1.0-dev"

// ScanResultsNotification is the method of pushed scan results.
const ScanResultsNotification = "notifications/scan-results"

// Server implements the MCP server for a detach session.
type Server struct {
	mcpServer *server.MCPServer
	session   *session.Session
	audit     *msglog.Logger // nil disables the tool call log
	logger    *slog.Logger
}

// NewServer creates an MCP server backed by sess. Selection and document
// changes in sess are forwarded to clients as scan-results notifications.
func NewServer(sess *session.Session, audit *msglog.Logger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{session: sess, audit: audit, logger: logger}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if audit != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}
	s.mcpServer = server.NewMCPServer("detachr", serverVersion, opts...)
	s.mcpServer.AddTools(s.tools()...)

	sess.OnPush(s.notify)
	return s
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: scanVariablesTool(), Handler: s.handleScanVariables},
		{Tool: detachVariablesTool(), Handler: s.handleDetachVariables},
		{Tool: getSelectionTool(), Handler: s.handleGetSelection},
		{Tool: setSelectionTool(), Handler: s.handleSetSelection},
	}
}

// notify forwards a pushed session message to every connected client.
func (s *Server) notify(msg session.Message) {
	params, err := notificationParams(msg)
	if err != nil {
		s.logger.Warn("failed to encode notification", "type", msg.Type, "error", err)
		return
	}
	method := ScanResultsNotification
	if msg.Type == session.TypeError {
		method = "notifications/error"
	}
	s.mcpServer.SendNotificationToAllClients(method, params)
}

func notificationParams(msg session.Message) (map[string]any, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
