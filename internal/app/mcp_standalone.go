package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"paperstack/internal/clipboard"
	"paperstack/internal/deepcopy"
	mcpserver "paperstack/internal/mcp"
	"paperstack/internal/service"
	"paperstack/internal/storage"
	"paperstack/internal/undo"
)

// noopEmitter is a no-op EventEmitter used in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// memClipboard stands in for the system clipboard in MCP-only mode; the
// payload lives for the lifetime of the process.
type memClipboard struct {
	text string
}

func (m *memClipboard) SetText(text string) error { m.text = text; return nil }
func (m *memClipboard) GetText() (string, error)  { return m.text, nil }

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// It initializes storage and services and runs the MCP server until interrupted.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "paperstack")
	dbPath := filepath.Join(dataDir, "paperstack.db")
	docsDir := filepath.Join(dataDir, "documents")

	db, err := storage.New(dbPath, docsDir)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	emitter := noopEmitter{}
	documents := storage.NewDocumentStore(db)
	journal := undo.NewJournal(db)
	library := service.NewLibraryService(documents, docsDir, emitter)
	if err := library.Start(ctx); err != nil {
		log.Printf("library watcher: %v", err)
	}
	defer library.Close()
	clip := clipboard.NewManager(&memClipboard{}, emitter)
	transfer := service.NewTransferService(
		library, deepcopy.NewEngine(), clip, journal, library.Scans(), emitter,
	)

	mcpSrv := mcpserver.New(mcpserver.Deps{
		Emitter:  emitter,
		Library:  library,
		Transfer: transfer,
	})

	log.Println("[MCP] Starting standalone stdio server...")
	if err := mcpSrv.ServeStdio(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
