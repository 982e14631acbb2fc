package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ironsheep/image-adjust-mcp/internal/config"
	"github.com/ironsheep/image-adjust-mcp/internal/export"
	"github.com/ironsheep/image-adjust-mcp/internal/handoff"
	"github.com/ironsheep/image-adjust-mcp/internal/session"
)

// Server handles MCP protocol communication
type Server struct {
	cfg      *config.Config
	store    handoff.Store
	exporter export.Exporter
	nav      *navigator
	logger   *slog.Logger

	mu      sync.Mutex
	session *session.Session
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server over the given handoff store. A nil config
// selects config.Default(); a nil logger discards output.
func New(cfg *config.Config, store handoff.Store, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		exporter: export.NewEngine(export.WithQuality(cfg.Export.Quality), export.WithLogger(logger)),
		nav:      newNavigator(logger),
		logger:   logger,
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(context.Background(), os.Stdin, os.Stdout)
}

// Serve processes newline-delimited JSON-RPC requests from r until EOF and
// writes responses to w. The open session is closed on return.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	defer s.closeSession()

	scanner := bufio.NewScanner(r)
	// Staged images travel inline as data URIs
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "image-adjust-mcp",
				"version": "0.1.0",
			},
		},
	}
}

// current returns the open session or an error if none was opened.
func (s *Server) current() (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, fmt.Errorf("no editor session; call editor_open first")
	}
	return s.session, nil
}

// replaceSession closes any open session and installs next.
func (s *Server) replaceSession(next *session.Session) {
	s.mu.Lock()
	prev := s.session
	s.session = next
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

func (s *Server) closeSession() {
	s.mu.Lock()
	prev := s.session
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}
