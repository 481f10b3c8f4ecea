package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerLibraryTools() {
	// ── list_documents ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents in the library"),
	), s.handleListDocuments)

	// ── document_pages ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("document_pages",
		mcp.WithDescription("List the pages of a document (positions, kinds, sizes; no content)"),
		mcp.WithString("documentId",
			mcp.Description("ID of the document; defaults to the active document"),
		),
	), s.handleDocumentPages)

	// ── set_active_document ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_document",
		mcp.WithDescription("Set the active document for subsequent tool calls. Tools that accept documentId will default to this."),
		mcp.WithString("documentId",
			mcp.Description("ID of the document to make active"),
			mcp.Required(),
		),
	), s.handleSetActiveDocument)
}

func (s *Server) handleListDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.library.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return jsonResult(docs)
}

func (s *Server) handleDocumentPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := s.resolveDocumentID(req)
	if err != nil {
		return nil, err
	}
	store, err := s.library.OpenDocument(documentID)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	type pageInfo struct {
		Position int    `json:"position"`
		ID       string `json:"id"`
		Kind     string `json:"kind"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Bytes    int    `json:"bytes"`
	}
	pages := store.Pages()
	infos := make([]pageInfo, len(pages))
	for i, p := range pages {
		infos[i] = pageInfo{
			Position: i,
			ID:       p.ID,
			Kind:     string(p.Kind),
			Width:    p.Width,
			Height:   p.Height,
			Bytes:    len(p.Content),
		}
	}
	return jsonResult(infos)
}

func (s *Server) handleSetActiveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID := req.GetString("documentId", "")
	if documentID == "" {
		return nil, fmt.Errorf("documentId is required")
	}
	if _, err := s.library.GetDocument(documentID); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	s.activeDocumentID = documentID
	return textResult(fmt.Sprintf("Active document set to %s", documentID)), nil
}
