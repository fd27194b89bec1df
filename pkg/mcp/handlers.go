package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/detach"
	"github.com/gnana997/detachr/pkg/session"
)

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleScanVariables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.session.Scan(ctx)
	if err != nil {
		return mcp.NewToolResultError("Error scanning variables: " + err.Error()), nil
	}
	return jsonResult(session.ScanResults{
		Bindings:    res.Bindings,
		Counts:      res.Counts,
		AfterDetach: req.GetBool("afterDetach", false),
		NoSelection: res.NoSelection,
	})
}

type detachArgs struct {
	Bindings []binding.VariableBinding `json:"bindings"`
	Options  *binding.DetachOptions    `json:"options"`
}

// detachResponse adds the dynamic-page warning to a detach result.
type detachResponse struct {
	*detach.Result
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleDetachVariables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args detachArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError("Error detaching variables: invalid arguments: " + err.Error()), nil
	}
	if args.Bindings == nil {
		return mcp.NewToolResultError("Error detaching variables: bindings is required"), nil
	}
	if args.Options == nil {
		return mcp.NewToolResultError("Error detaching variables: options is required"), nil
	}
	opts := *args.Options

	var warning string
	if s.session.DynamicPage() {
		warning = session.DynamicPageWarning
	}

	res, err := s.session.Detach(ctx, args.Bindings, opts)
	if err != nil {
		return mcp.NewToolResultError("Error detaching variables: " + err.Error()), nil
	}
	return jsonResult(detachResponse{Result: res, Warning: warning})
}

func (s *Server) handleGetSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.session.Selection()
	if err != nil {
		return mcp.NewToolResultError("Error reading selection: " + err.Error()), nil
	}
	if ids == nil {
		ids = []string{}
	}
	return jsonResult(map[string]any{
		"selection":   ids,
		"dynamicPage": s.session.DynamicPage(),
	})
}

func (s *Server) handleSetSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := req.RequireStringSlice("ids")
	if err != nil {
		return mcp.NewToolResultError("Error setting selection: " + err.Error()), nil
	}
	if err := s.session.SetSelection(ctx, ids); err != nil {
		return mcp.NewToolResultError("Error setting selection: " + err.Error()), nil
	}
	return s.handleScanVariables(ctx, req)
}
