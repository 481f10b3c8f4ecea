// Package mcpserver exposes the document library and the page transfer
// operations over MCP, so external agents and scripts can drive them.
package mcpserver

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"paperstack/internal/service"
)

// Server is the MCP server for the Paperstack app.
type Server struct {
	mcp     *server.MCPServer
	emitter service.EventEmitter

	library  *service.LibraryService
	transfer *service.TransferService

	// Active document context (set by set_active_document)
	activeDocumentID string
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter  service.EventEmitter
	Library  *service.LibraryService
	Transfer *service.TransferService
}

// New creates and configures a new MCP server with all tools.
func New(deps Deps) *Server {
	s := &Server{
		emitter:  deps.Emitter,
		library:  deps.Library,
		transfer: deps.Transfer,
	}

	s.mcp = server.NewMCPServer(
		"paperstack-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerLibraryTools()
	s.registerTransferTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// resolveDocumentID returns the documentId argument or the active document.
func (s *Server) resolveDocumentID(req mcp.CallToolRequest) (string, error) {
	if id := req.GetString("documentId", ""); id != "" {
		return id, nil
	}
	if s.activeDocumentID != "" {
		return s.activeDocumentID, nil
	}
	return "", fmt.Errorf("no documentId provided and no active document set (use set_active_document first)")
}
