package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// noArgs is the schema of a tool without parameters.
func noArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Handoff Store
		{
			Name:        "handoff_stage",
			Description: "Stage an image file from disk in the handoff store, as the upload step does. The editor picks up the first staged image under the source prefix.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Declared file name. Defaults to the base name of path",
					},
					"slot": map[string]interface{}{
						"type":        "string",
						"description": "Store key. Defaults to the source prefix followed by the name",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "handoff_list",
			Description: "List the keys in the handoff store under a prefix.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"prefix": map[string]interface{}{
						"type":        "string",
						"description": "Key prefix. Empty lists every key",
					},
				},
			},
		},

		// Session Lifecycle
		{
			Name:        "editor_open",
			Description: "Open an editing session on the staged source image. Any open session is closed first. If nothing was handed off, or from_upload is not true, the result names the upload step to return to.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"from_upload": map[string]interface{}{
						"type":        "boolean",
						"description": "Set to true when the editor was reached from the upload step. Omitting it redirects to upload",
					},
				},
			},
		},
		{
			Name:        "editor_state",
			Description: "Get the session state, current adjustments, CSS filter string and zoom.",
			InputSchema: noArgs(),
		},
		{
			Name:        "editor_close",
			Description: "Close the editing session. A pending export is discarded.",
			InputSchema: noArgs(),
		},

		// Adjustments
		{
			Name:        "editor_adjust",
			Description: "Set one adjustment by name and value, or several at once. Values are clamped into range and snapped to the parameter step. Names: brightness, contrast, saturate, grayscale, invert, opacity, sepia, blur, hueRotate.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Adjustment name",
						"enum":        []string{"brightness", "contrast", "saturate", "grayscale", "invert", "opacity", "sepia", "blur", "hueRotate"},
					},
					"value": map[string]interface{}{
						"type":        "number",
						"description": "New value",
					},
					"adjustments": map[string]interface{}{
						"type":                 "object",
						"description":          "Several name/value pairs applied as one change",
						"additionalProperties": map[string]interface{}{"type": "number"},
					},
				},
			},
		},
		{
			Name:        "editor_reset",
			Description: "Restore every adjustment to its default. Zoom is unchanged.",
			InputSchema: noArgs(),
		},

		// Viewport
		{
			Name:        "editor_zoom",
			Description: "Apply a wheel delta to the preview zoom. Scale stays within 0.5 to 2.0. Zoom never affects the exported image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"delta": map[string]interface{}{
						"type":        "number",
						"description": "Raw wheel delta. Positive zooms in with the default sensitivity",
					},
				},
				"required": []string{"delta"},
			},
		},
		{
			Name:        "editor_zoom_reset",
			Description: "Restore the preview zoom to 100%. Adjustments are unchanged.",
			InputSchema: noArgs(),
		},

		// Rendering
		{
			Name:        "editor_preview",
			Description: "Render the adjusted image at the current zoom and return it as base64-encoded PNG with a color and exposure summary.",
			InputSchema: noArgs(),
		},
		{
			Name:        "editor_sample_color",
			Description: "Get the adjusted color at a pixel, in native image coordinates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based)",
					},
				},
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "editor_export",
			Description: "Render the adjusted image at native resolution, encode it as JPEG and commit it to the handoff store for the finalize step. Only one export may run at a time.",
			InputSchema: noArgs(),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
