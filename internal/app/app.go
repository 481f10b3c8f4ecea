package app

import (
	"context"
	"os"
	"path/filepath"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"paperstack/internal/clipboard"
	"paperstack/internal/deepcopy"
	"paperstack/internal/service"
	"paperstack/internal/storage"
	"paperstack/internal/undo"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context

	db        *storage.DB
	documents *storage.DocumentStore
	journal   *undo.Journal
	library   *service.LibraryService
	importer  *service.InboxImporter
	clip      *clipboard.Manager
	transfer  *service.TransferService
}

// New creates a new App.
func New() *App {
	return &App{}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "paperstack")
	dbPath := filepath.Join(dataDir, "paperstack.db")
	docsDir := filepath.Join(dataDir, "documents")
	inboxDir := filepath.Join(dataDir, "inbox")

	db, err := storage.New(dbPath, docsDir)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open database: %v", err)
		return
	}
	a.db = db
	a.documents = storage.NewDocumentStore(db)
	a.journal = undo.NewJournal(db)

	a.library = service.NewLibraryService(a.documents, docsDir, a)
	if err := a.library.Start(ctx); err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to start library watcher: %v", err)
	}

	a.clip = clipboard.NewManager(&wailsClipboard{app: a}, a)
	a.transfer = service.NewTransferService(
		a.library,
		deepcopy.NewEngine(),
		a.clip,
		a.journal,
		a.library.Scans(),
		a,
	)

	a.importer = service.NewInboxImporter(a.library, inboxDir, a)
	if err := a.importer.Start(ctx); err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to start inbox importer: %v", err)
	}
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.importer != nil {
		a.importer.Stop()
	}
	if a.library != nil {
		a.library.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// Emit implements service.EventEmitter by delegating to the Wails runtime.
func (a *App) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(a.ctx, event, data)
}
