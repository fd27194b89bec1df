package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names.
const (
	toolScanVariables   = "scan_variables"
	toolDetachVariables = "detach_variables"
	toolGetSelection    = "get_selection"
	toolSetSelection    = "set_selection"
)

func scanVariablesTool() mcp.Tool {
	return mcp.NewTool(toolScanVariables,
		mcp.WithDescription("Scan the selected layers (or the whole current page when nothing is selected) "+
			"for bound design variables and legacy styles. Returns every binding with its category, "+
			"property path, variable name and resolved value, plus per-category counts."),
		mcp.WithBoolean("afterDetach",
			mcp.Description("Echoed back in the result; set when rescanning right after a detach"),
		),
	)
}

func detachVariablesTool() mcp.Tool {
	return mcp.NewTool(toolDetachVariables,
		mcp.WithDescription("Replace bindings with their resolved literal values and remove the bindings. "+
			"Pass the bindings returned by scan_variables (optionally a subset) and choose the categories "+
			"to detach. With dryRun the document is left untouched and the result lists what would change."),
		mcp.WithArray("bindings",
			mcp.Required(),
			mcp.Description("Bindings as returned by scan_variables"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithObject("options",
			mcp.Required(),
			mcp.Description("Categories to detach and dry-run flag; categories left out are not touched"),
			mcp.Properties(map[string]any{
				"color":  map[string]any{"type": "boolean"},
				"text":   map[string]any{"type": "boolean"},
				"number": map[string]any{"type": "boolean"},
				"other":  map[string]any{"type": "boolean"},
				"dryRun": map[string]any{"type": "boolean"},
			}),
		),
	)
}

func getSelectionTool() mcp.Tool {
	return mcp.NewTool(toolGetSelection,
		mcp.WithDescription("Return the ids of the selected layers on the current page"),
	)
}

func setSelectionTool() mcp.Tool {
	return mcp.NewTool(toolSetSelection,
		mcp.WithDescription("Select layers by id on the current page and return a fresh scan of the new "+
			"selection. An empty list clears the selection."),
		mcp.WithArray("ids",
			mcp.Required(),
			mcp.Description("Layer ids to select"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}
