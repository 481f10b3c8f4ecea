package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"paperstack/internal/domain"
	"paperstack/internal/pagestore"
	"paperstack/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Library Service — document catalog and open-document cache
// ─────────────────────────────────────────────────────────────

// containerExt is the extension of a document's on-disk container file.
// Sync collaborators read and write these; the catalog itself stays local.
const containerExt = ".pspack"

// LibraryService manages the document catalog, keeps open documents as
// page stores, and watches container files for external modification.
type LibraryService struct {
	store   *storage.DocumentStore
	docsDir string
	emitter EventEmitter
	scans   *ScanSessions

	open map[string]*pagestore.Store // documentID → open store

	watcher *fsnotify.Watcher

	mu          sync.Mutex
	recentSaves map[string]time.Time // container path → time of our own write
}

// NewLibraryService creates a LibraryService rooted at docsDir.
func NewLibraryService(store *storage.DocumentStore, docsDir string, emitter EventEmitter) *LibraryService {
	return &LibraryService{
		store:       store,
		docsDir:     docsDir,
		emitter:     emitter,
		scans:       NewScanSessions(),
		open:        make(map[string]*pagestore.Store),
		recentSaves: make(map[string]time.Time),
	}
}

// Scans exposes the provisional-page tracker (the DraftRanges provider).
func (s *LibraryService) Scans() *ScanSessions { return s.scans }

// Start begins watching the documents directory for external writes.
func (s *LibraryService) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.docsDir, 0755); err != nil {
		return fmt.Errorf("create documents dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.docsDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch documents dir: %w", err)
	}
	s.watcher = watcher
	go s.watchLoop(ctx)
	return nil
}

// Close stops the conflict watcher.
func (s *LibraryService) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// ── Catalog ────────────────────────────────────────────────

func (s *LibraryService) ListDocuments() ([]domain.Document, error) {
	return s.store.ListDocuments()
}

func (s *LibraryService) GetDocument(id string) (*domain.Document, error) {
	return s.store.GetDocument(id)
}

// CreateDocument adds an empty document to the catalog.
func (s *LibraryService) CreateDocument(title string) (*domain.Document, error) {
	d := &domain.Document{
		ID:      uuid.New().String(),
		Title:   title,
		Status:  domain.StatusAvailable,
		RelPath: "",
	}
	d.RelPath = d.ID + containerExt
	if err := s.store.CreateDocument(d); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.open[d.ID] = pagestore.New(d.ID, nil)
	return d, nil
}

// RenameDocument changes a document's display title.
func (s *LibraryService) RenameDocument(id, title string) error {
	d, err := s.store.GetDocument(id)
	if err != nil {
		return err
	}
	d.Title = title
	return s.store.UpdateDocument(d)
}

// DeleteDocument removes a document, its pages, and its container file.
func (s *LibraryService) DeleteDocument(id string) error {
	d, err := s.store.GetDocument(id)
	if err != nil {
		return err
	}
	delete(s.open, id)
	if d.RelPath != "" {
		_ = os.Remove(filepath.Join(s.docsDir, d.RelPath))
	}
	return s.store.DeleteDocument(id)
}

// ── Open documents ─────────────────────────────────────────

// OpenDocument returns the page store for a document, loading it on first
// use. The same store instance is returned for repeated opens.
func (s *LibraryService) OpenDocument(id string) (*pagestore.Store, error) {
	if store, ok := s.open[id]; ok {
		return store, nil
	}
	if _, err := s.store.GetDocument(id); err != nil {
		return nil, err
	}
	pages, err := s.store.LoadPages(id)
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	store := pagestore.New(id, pages)
	s.open[id] = store
	return store, nil
}

// SaveDocument persists an open document's pages and rewrites its container
// file. The container write is recorded so the conflict watcher does not
// flag our own saves.
func (s *LibraryService) SaveDocument(ctx context.Context, id string) error {
	store, ok := s.open[id]
	if !ok {
		return fmt.Errorf("document %s is not open", id)
	}
	d, err := s.store.GetDocument(id)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceDocumentPages(id, store.Pages()); err != nil {
		return fmt.Errorf("persist pages: %w", err)
	}

	if store.Len() > 0 {
		snapshot, err := store.Snapshot()
		if err != nil {
			return fmt.Errorf("encode container: %w", err)
		}
		path := filepath.Join(s.docsDir, d.RelPath)
		s.markOwnWrite(path)
		if err := os.WriteFile(path, snapshot, 0644); err != nil {
			return fmt.Errorf("write container: %w", err)
		}
	}

	s.emitter.Emit(ctx, "document:changed", map[string]any{
		"documentId": id,
		"pageCount":  store.Len(),
	})
	return nil
}

// AppendScannedPage appends one page to an open document. If a scan session
// is active the page stays provisional until the session commits.
func (s *LibraryService) AppendScannedPage(ctx context.Context, id string, kind domain.PageKind, content []byte, width, height int) (*domain.Page, error) {
	store, err := s.OpenDocument(id)
	if err != nil {
		return nil, err
	}
	p := domain.Page{
		ID:        uuid.New().String(),
		Kind:      kind,
		Content:   content,
		Width:     width,
		Height:    height,
		CreatedAt: time.Now(),
	}
	if err := store.InsertAt(store.Len(), []domain.Page{p}); err != nil {
		return nil, err
	}
	s.scans.PageAppended(id)
	if err := s.SaveDocument(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ── Writability ────────────────────────────────────────────

// CheckWritable maps the document status to the coded transfer errors.
// Called before any mutation and again immediately before the final write.
func (s *LibraryService) CheckWritable(id string) error {
	d, err := s.store.GetDocument(id)
	if err != nil {
		return domain.NewError(domain.CodeDocumentUnavailable, err)
	}
	switch d.Status {
	case domain.StatusAvailable:
		return nil
	case domain.StatusReadOnly:
		return domain.NewError(domain.CodeDocumentReadOnly, nil)
	case domain.StatusConflicted:
		return domain.NewError(domain.CodeDocumentConflicted, nil)
	default:
		return domain.NewError(domain.CodeDocumentUnavailable, nil)
	}
}

// CheckReadable rejects only documents that cannot be read at all.
func (s *LibraryService) CheckReadable(id string) error {
	d, err := s.store.GetDocument(id)
	if err != nil {
		return domain.NewError(domain.CodeDocumentUnavailable, err)
	}
	if d.Status == domain.StatusUnavailable {
		return domain.NewError(domain.CodeDocumentUnavailable, nil)
	}
	return nil
}

// SetStatus transitions a document's availability state.
func (s *LibraryService) SetStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	d, err := s.store.GetDocument(id)
	if err != nil {
		return err
	}
	d.Status = status
	if err := s.store.UpdateDocument(d); err != nil {
		return err
	}
	s.emitter.Emit(ctx, "document:status", map[string]string{
		"documentId": id,
		"status":     string(status),
	})
	return nil
}

// ── Conflict watcher ───────────────────────────────────────

func (s *LibraryService) markOwnWrite(path string) {
	s.mu.Lock()
	s.recentSaves[path] = time.Now()
	s.mu.Unlock()
}

func (s *LibraryService) isOwnWrite(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.recentSaves[path]
	return ok && time.Since(t) < 2*time.Second
}

func (s *LibraryService) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, containerExt) || s.isOwnWrite(event.Name) {
				continue
			}
			s.flagConflict(ctx, filepath.Base(event.Name))
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("library watcher: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

// flagConflict marks the document whose container was externally modified.
// The transfer service re-checks writability before every final write, so a
// conflict raised here aborts in-flight operations atomically.
func (s *LibraryService) flagConflict(ctx context.Context, relPath string) {
	docs, err := s.store.ListDocuments()
	if err != nil {
		return
	}
	for i := range docs {
		if docs[i].RelPath != relPath {
			continue
		}
		docs[i].Status = domain.StatusConflicted
		if err := s.store.UpdateDocument(&docs[i]); err != nil {
			log.Printf("library watcher: flag conflict: %v", err)
			return
		}
		s.emitter.Emit(ctx, "document:conflicted", map[string]string{"documentId": docs[i].ID})
		return
	}
}
