// Package server implements the MCP (Model Context Protocol) server for the
// image adjustment editor.
//
// The server exposes one editing session at a time as a set of tools. A
// client stages an image in the handoff store (as the upload step would),
// opens the editor, adjusts filters and zoom, previews the result, and
// exports it back to the handoff store for the finalize step.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Handoff Store:
//   - handoff_stage: Stage an image file under the source prefix
//   - handoff_list: List staged keys
//
// Session Lifecycle:
//   - editor_open: Open a session on the staged source image
//   - editor_state: Report state, adjustments and zoom
//   - editor_close: Close the session
//
// Adjustments:
//   - editor_adjust: Set one or several adjustments
//   - editor_reset: Restore default adjustments
//
// Viewport:
//   - editor_zoom: Apply a wheel delta to the preview scale
//   - editor_zoom_reset: Restore 100% zoom
//
// Rendering:
//   - editor_preview: Render the preview as base64 PNG
//   - editor_sample_color: Sample the adjusted color at a pixel
//   - editor_export: Render at native resolution and commit as JPEG
//
// # Navigation
//
// When the editor is opened without a handed-off image, or without
// from_upload set to true, editor_open succeeds with state "redirected" and a navigation entry naming the upload step. A
// successful export carries a navigation entry naming the finalize step and
// the result slot. The client performs the navigation.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(cfg, store, logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
