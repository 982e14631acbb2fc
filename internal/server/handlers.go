package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/image-adjust-mcp/internal/adjust"
	"github.com/ironsheep/image-adjust-mcp/internal/handoff"
	"github.com/ironsheep/image-adjust-mcp/internal/imaging"
	"github.com/ironsheep/image-adjust-mcp/internal/session"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "editor_open", "editor_adjust").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Handoff Store
	case "handoff_stage":
		return s.handleHandoffStage(ctx, args)
	case "handoff_list":
		return s.handleHandoffList(ctx, args)

	// Session Lifecycle
	case "editor_open":
		return s.handleEditorOpen(ctx, args)
	case "editor_state":
		return s.handleEditorState()
	case "editor_close":
		return s.handleEditorClose()

	// Adjustments
	case "editor_adjust":
		return s.handleEditorAdjust(args)
	case "editor_reset":
		return s.handleEditorReset()

	// Viewport
	case "editor_zoom":
		return s.handleEditorZoom(args)
	case "editor_zoom_reset":
		return s.handleEditorZoomReset()

	// Rendering
	case "editor_preview":
		return s.handleEditorPreview(ctx)
	case "editor_sample_color":
		return s.handleEditorSampleColor(ctx, args)
	case "editor_export":
		return s.handleEditorExport(ctx)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. Missing arguments decode as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Handoff Store Handlers ===

type handoffStageArgs struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Slot string `json:"slot"`
}

// StageResult describes a staged image.
type StageResult struct {
	Slot      string             `json:"slot"`
	Name      string             `json:"name"`
	MimeType  string             `json:"mime_type"`
	SizeBytes int                `json:"size_bytes"`
	Image     *imaging.ImageInfo `json:"image,omitempty"`
}

func (s *Server) handleHandoffStage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a handoffStageArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	raw, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if a.Name == "" {
		a.Name = filepath.Base(a.Path)
	}
	if a.Slot == "" {
		a.Slot = s.cfg.Handoff.SourcePrefix + a.Name
	}
	if a.Slot == s.cfg.Handoff.ResultSlot {
		return nil, fmt.Errorf("slot %q is reserved for export results", a.Slot)
	}

	staged := handoff.NewStagedImage(a.Name, "", raw)
	if err := s.store.Put(ctx, a.Slot, staged); err != nil {
		return nil, err
	}

	res := &StageResult{
		Slot:      a.Slot,
		Name:      a.Name,
		MimeType:  staged.MimeType(),
		SizeBytes: len(raw),
	}
	// Undecodable payloads are staged as-is; the editor reports them on export.
	if info, err := imaging.Inspect(raw); err == nil {
		res.Image = info
	}
	return res, nil
}

type handoffListArgs struct {
	Prefix string `json:"prefix"`
}

func (s *Server) handleHandoffList(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a handoffListArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	keys, err := s.store.List(ctx, a.Prefix)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return map[string]interface{}{"prefix": a.Prefix, "keys": keys}, nil
}

// === Session Lifecycle Handlers ===

// SessionResult is returned by tools that change the session lifecycle.
type SessionResult struct {
	Session    session.Status `json:"session"`
	Navigation *Navigation    `json:"navigation,omitempty"`
}

type editorOpenArgs struct {
	FromUpload *bool `json:"from_upload"`
}

func (s *Server) handleEditorOpen(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a editorOpenArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	// An absent flag means the editor was not reached from the upload step.
	fromUpload := a.FromUpload != nil && *a.FromUpload

	sess := session.New(s.store, s.exporter, s.nav, session.Options{
		SourcePrefix: s.cfg.Handoff.SourcePrefix,
		ResultSlot:   s.cfg.Handoff.ResultSlot,
		ResultName:   s.cfg.Handoff.ResultName,
		Sensitivity:  s.cfg.Viewport.Sensitivity,
	}, s.logger)
	s.replaceSession(sess)
	s.nav.take()

	if err := sess.Start(ctx, fromUpload); err != nil {
		var pre *session.PreconditionError
		if !errors.As(err, &pre) {
			return nil, err
		}
	}
	return &SessionResult{Session: sess.Status(), Navigation: s.nav.take()}, nil
}

func (s *Server) handleEditorState() (interface{}, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	return &SessionResult{Session: sess.Status()}, nil
}

func (s *Server) handleEditorClose() (interface{}, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	sess.Close()
	return &SessionResult{Session: sess.Status()}, nil
}

// === Adjustment Handlers ===

type editorAdjustArgs struct {
	Name        string             `json:"name"`
	Value       *float64           `json:"value"`
	Adjustments map[string]float64 `json:"adjustments"`
}

// AdjustResult reports the adjustments after an edit.
type AdjustResult struct {
	Adjustments adjust.Set `json:"adjustments"`
	Filter      string     `json:"filter"`
}

func (s *Server) handleEditorAdjust(args json.RawMessage) (interface{}, error) {
	var a editorAdjustArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	values := make(map[adjust.Param]float64, len(a.Adjustments)+1)
	for name, v := range a.Adjustments {
		p, err := adjust.ParseParam(name)
		if err != nil {
			return nil, err
		}
		values[p] = v
	}
	if a.Name != "" {
		if a.Value == nil {
			return nil, fmt.Errorf("value is required with name")
		}
		p, err := adjust.ParseParam(a.Name)
		if err != nil {
			return nil, err
		}
		values[p] = *a.Value
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("name and value, or adjustments, are required")
	}

	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	set, err := sess.AdjustMany(values)
	if err != nil {
		return nil, err
	}
	return &AdjustResult{Adjustments: set, Filter: sess.Chain().String()}, nil
}

func (s *Server) handleEditorReset() (interface{}, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	set, err := sess.ResetAdjustments()
	if err != nil {
		return nil, err
	}
	return &AdjustResult{Adjustments: set, Filter: sess.Chain().String()}, nil
}

// === Viewport Handlers ===

type editorZoomArgs struct {
	Delta float64 `json:"delta"`
}

// ZoomResult reports the preview scale.
type ZoomResult struct {
	Scale       float64 `json:"scale"`
	ZoomPercent int     `json:"zoom_percent"`
}

func (s *Server) handleEditorZoom(args json.RawMessage) (interface{}, error) {
	var a editorZoomArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	if _, err := sess.Zoom(a.Delta); err != nil {
		return nil, err
	}
	st := sess.Status()
	return &ZoomResult{Scale: st.Scale, ZoomPercent: st.ZoomPercent}, nil
}

func (s *Server) handleEditorZoomReset() (interface{}, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	if _, err := sess.ResetZoom(); err != nil {
		return nil, err
	}
	st := sess.Status()
	return &ZoomResult{Scale: st.Scale, ZoomPercent: st.ZoomPercent}, nil
}

// === Rendering Handlers ===

func (s *Server) handleEditorPreview(ctx context.Context) (interface{}, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	return sess.Preview(ctx)
}

type editorSampleColorArgs struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleEditorSampleColor(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a editorSampleColorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	return sess.SampleColor(ctx, a.X, a.Y)
}

// ExportResult reports a committed export and the step it was handed to.
type ExportResult struct {
	Outcome    *session.Outcome `json:"outcome"`
	Navigation *Navigation      `json:"navigation,omitempty"`
}

func (s *Server) handleEditorExport(ctx context.Context) (interface{}, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	out, err := sess.Export(ctx)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Outcome: out, Navigation: s.nav.take()}, nil
}
