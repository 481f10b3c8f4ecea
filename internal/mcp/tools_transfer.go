package mcpserver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTransferTools() {
	// ── copy_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("copy_pages",
		mcp.WithDescription("Copy pages to the transfer clipboard. The source document is not modified."),
		mcp.WithString("documentId",
			mcp.Description("Source document; defaults to the active document"),
		),
		mcp.WithString("positions",
			mcp.Description("Comma-separated page positions, e.g. \"0,2,3\""),
			mcp.Required(),
		),
	), s.handleCopyPages)

	// ── cut_pages ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("cut_pages",
		mcp.WithDescription("Cut pages to the transfer clipboard. The pages are removed from the source immediately."),
		mcp.WithString("documentId",
			mcp.Description("Source document; defaults to the active document"),
		),
		mcp.WithString("positions",
			mcp.Description("Comma-separated page positions, e.g. \"0,2,3\""),
			mcp.Required(),
		),
	), s.handleCutPages)

	// ── paste_pages ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("paste_pages",
		mcp.WithDescription("Paste the clipboard pages into a document"),
		mcp.WithString("documentId",
			mcp.Description("Target document; defaults to the active document"),
		),
		mcp.WithString("insertIndex",
			mcp.Description("Insertion position in the target; omitted means after the current selection or at the end"),
		),
	), s.handlePastePages)

	// ── restore_cut ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("restore_cut",
		mcp.WithDescription("Restore an un-pasted cut: put the cut pages back into their source document and clear the clipboard"),
	), s.handleRestoreCut)
}

func (s *Server) handleCopyPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := s.resolveDocumentID(req)
	if err != nil {
		return nil, err
	}
	positions, err := parsePositions(req.GetString("positions", ""))
	if err != nil {
		return nil, err
	}
	if err := s.transfer.Copy(ctx, documentID, positions); err != nil {
		return nil, fmt.Errorf("copy pages: %w", err)
	}
	return textResult(fmt.Sprintf("Copied %d page(s) from %s", len(positions), documentID)), nil
}

func (s *Server) handleCutPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := s.resolveDocumentID(req)
	if err != nil {
		return nil, err
	}
	positions, err := parsePositions(req.GetString("positions", ""))
	if err != nil {
		return nil, err
	}
	if err := s.transfer.Cut(ctx, documentID, positions); err != nil {
		return nil, fmt.Errorf("cut pages: %w", err)
	}
	return textResult(fmt.Sprintf("Cut %d page(s) from %s", len(positions), documentID)), nil
}

func (s *Server) handlePastePages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := s.resolveDocumentID(req)
	if err != nil {
		return nil, err
	}
	var insertIndex *int
	if raw := req.GetString("insertIndex", ""); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid insertIndex %q", raw)
		}
		insertIndex = &idx
	}
	inserted, err := s.transfer.Paste(ctx, documentID, insertIndex)
	if err != nil {
		return nil, fmt.Errorf("paste pages: %w", err)
	}
	if len(inserted) == 0 {
		return textResult("Nothing to paste"), nil
	}
	return jsonResult(map[string]any{"documentId": documentID, "inserted": inserted})
}

func (s *Server) handleRestoreCut(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.transfer.RestoreCut(ctx); err != nil {
		return nil, fmt.Errorf("restore cut: %w", err)
	}
	return textResult("Cut restored"), nil
}

// parsePositions parses a comma-separated list of page positions.
func parsePositions(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("positions is required")
	}
	parts := strings.Split(raw, ",")
	positions := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid position %q", p)
		}
		positions = append(positions, n)
	}
	return positions, nil
}
