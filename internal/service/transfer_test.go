package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"paperstack/internal/clipboard"
	"paperstack/internal/deepcopy"
	"paperstack/internal/domain"
	"paperstack/internal/service"
	"paperstack/internal/storage"
	"paperstack/internal/undo"
)

// fixture wires a transfer service over a real SQLite database and an
// in-memory system clipboard.
type fixture struct {
	t        *testing.T
	db       *storage.DB
	library  *service.LibraryService
	system   *clipboard.MockSystemClipboard
	clip     *clipboard.Manager
	journal  *undo.Journal
	emitter  *service.MockEmitter
	transfer *service.TransferService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithEngine(t, deepcopy.NewEngine())
}

func newFixtureWithEngine(t *testing.T, engine *deepcopy.Engine) *fixture {
	t.Helper()
	dir := t.TempDir()
	docsDir := filepath.Join(dir, "documents")
	db, err := storage.New(filepath.Join(dir, "test.db"), docsDir)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	emitter := &service.MockEmitter{}
	library := service.NewLibraryService(storage.NewDocumentStore(db), docsDir, emitter)
	system := &clipboard.MockSystemClipboard{}
	clip := clipboard.NewManager(system, emitter)
	journal := undo.NewJournal(db)
	transfer := service.NewTransferService(library, engine, clip, journal, library.Scans(), emitter)

	return &fixture{
		t:        t,
		db:       db,
		library:  library,
		system:   system,
		clip:     clip,
		journal:  journal,
		emitter:  emitter,
		transfer: transfer,
	}
}

func (f *fixture) makeDoc(title string, contents ...string) string {
	f.t.Helper()
	d, err := f.library.CreateDocument(title)
	if err != nil {
		f.t.Fatalf("CreateDocument: %v", err)
	}
	if len(contents) > 0 {
		store, err := f.library.OpenDocument(d.ID)
		if err != nil {
			f.t.Fatalf("OpenDocument: %v", err)
		}
		pages := make([]domain.Page, len(contents))
		for i, c := range contents {
			pages[i] = domain.Page{
				ID:        uuid.New().String(),
				Kind:      domain.PageScan,
				Content:   []byte(c),
				CreatedAt: time.Now(),
			}
		}
		if err := store.InsertAt(0, pages); err != nil {
			f.t.Fatalf("InsertAt: %v", err)
		}
		if err := f.library.SaveDocument(context.Background(), d.ID); err != nil {
			f.t.Fatalf("SaveDocument: %v", err)
		}
	}
	return d.ID
}

func (f *fixture) contents(documentID string) []string {
	f.t.Helper()
	store, err := f.library.OpenDocument(documentID)
	if err != nil {
		f.t.Fatalf("OpenDocument: %v", err)
	}
	out := make([]string, 0, store.Len())
	for _, p := range store.Pages() {
		out = append(out, string(p.Content))
	}
	return out
}

// persistedContents reads page contents straight from SQLite, bypassing the
// open-document cache.
func (f *fixture) persistedContents(documentID string) []string {
	f.t.Helper()
	pages, err := storage.NewDocumentStore(f.db).LoadPages(documentID)
	if err != nil {
		f.t.Fatalf("LoadPages: %v", err)
	}
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, string(p.Content))
	}
	return out
}

func (f *fixture) wantContents(documentID string, want []string) {
	f.t.Helper()
	if diff := cmp.Diff(want, f.contents(documentID)); diff != "" {
		f.t.Errorf("document pages (-want +got):\n%s", diff)
	}
}

func intp(i int) *int { return &i }

// ── Copy ───────────────────────────────────────────────────

func TestCopyPasteAcrossDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.makeDoc("Source", "A", "B", "C")
	dst := f.makeDoc("Target")

	if err := f.transfer.Copy(ctx, src, []int{0, 2}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if !f.transfer.HasClipboardContent() {
		t.Fatal("clipboard empty after copy")
	}

	inserted, err := f.transfer.Paste(ctx, dst, nil)
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if diff := cmp.Diff([]int{0, 1}, inserted); diff != "" {
		t.Errorf("inserted positions (-want +got):\n%s", diff)
	}
	f.wantContents(dst, []string{"A", "C"})
	f.wantContents(src, []string{"A", "B", "C"})
	if diff := cmp.Diff([]string{"A", "C"}, f.persistedContents(dst)); diff != "" {
		t.Errorf("persisted pages (-want +got):\n%s", diff)
	}

	// Copy payloads survive the paste for repeated use.
	if !f.transfer.HasClipboardContent() {
		t.Error("copy payload consumed by paste")
	}
}

func TestRepeatedPastesAreIndependent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.makeDoc("Source", "A")
	dst1 := f.makeDoc("First")
	dst2 := f.makeDoc("Second")

	if err := f.transfer.Copy(ctx, src, []int{0}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if _, err := f.transfer.Paste(ctx, dst1, nil); err != nil {
		t.Fatalf("Paste dst1: %v", err)
	}
	if _, err := f.transfer.Paste(ctx, dst2, nil); err != nil {
		t.Fatalf("Paste dst2: %v", err)
	}

	// Mutating one pasted page must not reach its siblings or the source.
	store, err := f.library.OpenDocument(dst1)
	if err != nil {
		t.Fatalf("OpenDocument: %v", err)
	}
	p, err := store.PageAt(0)
	if err != nil {
		t.Fatalf("PageAt: %v", err)
	}
	p.Content[0] = 'Z'

	f.wantContents(src, []string{"A"})
	f.wantContents(dst2, []string{"A"})
}

func TestCopyErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A")

	if err := f.transfer.Copy(ctx, doc, nil); domain.CodeOf(err) != domain.CodeSelectionEmpty {
		t.Errorf("empty selection error = %v, want selection_empty", err)
	}
	if f.transfer.HasClipboardContent() {
		t.Error("failed copy left a payload on the clipboard")
	}
}

// ── Cut and restore ────────────────────────────────────────

func TestCutRemovesPagesImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A", "B", "C")

	if err := f.transfer.Cut(ctx, doc, []int{1}); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	f.wantContents(doc, []string{"A", "C"})
	if diff := cmp.Diff([]string{"A", "C"}, f.persistedContents(doc)); diff != "" {
		t.Errorf("persisted pages (-want +got):\n%s", diff)
	}
	if !f.transfer.HasClipboardContent() {
		t.Error("clipboard empty after cut")
	}
	if got := f.transfer.UndoLabel(doc); got != "Cut Pages" {
		t.Errorf("UndoLabel = %q, want Cut Pages", got)
	}
}

func TestRestoreCut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A", "B", "C")

	if err := f.transfer.Cut(ctx, doc, []int{0, 2}); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	f.wantContents(doc, []string{"B"})

	if err := f.transfer.RestoreCut(ctx); err != nil {
		t.Fatalf("RestoreCut: %v", err)
	}
	f.wantContents(doc, []string{"A", "B", "C"})
	if f.transfer.HasClipboardContent() {
		t.Error("clipboard still holds the cut after restore")
	}

	// Nothing held: restore is a no-op, and so is paste.
	if err := f.transfer.RestoreCut(ctx); err != nil {
		t.Errorf("second RestoreCut: %v", err)
	}
	inserted, err := f.transfer.Paste(ctx, doc, nil)
	if err != nil || inserted != nil {
		t.Errorf("Paste after restore = (%v, %v), want no-op", inserted, err)
	}
}

func TestSecondCutDiscardsFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc1 := f.makeDoc("First", "A", "B")
	doc2 := f.makeDoc("Second", "C", "D")

	if err := f.transfer.Cut(ctx, doc1, []int{0}); err != nil {
		t.Fatalf("first Cut: %v", err)
	}
	if err := f.transfer.Cut(ctx, doc2, []int{0}); err != nil {
		t.Fatalf("second Cut: %v", err)
	}

	// The first cut's pages stay removed; only the event tells the user.
	f.wantContents(doc1, []string{"B"})
	found := false
	for _, e := range f.emitter.Events {
		if e.Event == "clipboard:cut-discarded" {
			found = true
		}
	}
	if !found {
		t.Error("clipboard:cut-discarded not emitted")
	}

	// The surviving payload is the second cut.
	inserted, err := f.transfer.Paste(ctx, doc1, intp(0))
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if len(inserted) != 1 {
		t.Fatalf("inserted %d pages, want 1", len(inserted))
	}
	f.wantContents(doc1, []string{"C", "B"})
}

// ── Paste and move ─────────────────────────────────────────

func TestSameDocumentMove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A", "B", "C", "D")

	if err := f.transfer.Cut(ctx, doc, []int{0}); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	f.wantContents(doc, []string{"B", "C", "D"})

	// An explicit index addresses the document as it is now, after the cut.
	inserted, err := f.transfer.Paste(ctx, doc, intp(2))
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if diff := cmp.Diff([]int{2}, inserted); diff != "" {
		t.Errorf("inserted positions (-want +got):\n%s", diff)
	}
	f.wantContents(doc, []string{"B", "C", "A", "D"})

	// The whole move collapses to one undo step back to the original order.
	if got := f.transfer.UndoLabel(doc); got != "Move Pages" {
		t.Errorf("UndoLabel = %q, want Move Pages", got)
	}
	label, err := f.transfer.Undo(ctx, doc)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if label != "Move Pages" {
		t.Errorf("Undo label = %q, want Move Pages", label)
	}
	f.wantContents(doc, []string{"A", "B", "C", "D"})

	if _, err := f.transfer.Redo(ctx, doc); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	f.wantContents(doc, []string{"B", "C", "A", "D"})
}

func TestMovePasteConsumesCut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A", "B")

	if err := f.transfer.Cut(ctx, doc, []int{0}); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	if _, err := f.transfer.Paste(ctx, doc, intp(1)); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if f.transfer.HasClipboardContent() {
		t.Error("cut payload survived its paste")
	}
	// A second paste finds nothing.
	inserted, err := f.transfer.Paste(ctx, doc, nil)
	if err != nil || inserted != nil {
		t.Errorf("second Paste = (%v, %v), want no-op", inserted, err)
	}
}

func TestMoveDefaultIndexReturnsPagesToPlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A", "B", "C", "D")

	// With no explicit target the move lands where the pages were cut from.
	if err := f.transfer.Cut(ctx, doc, []int{1}); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	f.wantContents(doc, []string{"A", "C", "D"})
	if _, err := f.transfer.Paste(ctx, doc, nil); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	f.wantContents(doc, []string{"A", "B", "C", "D"})
}

func TestNonContiguousTransferSequence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "P1", "P2", "P3")

	// Duplicate the first page to the end.
	if err := f.transfer.Copy(ctx, doc, []int{0}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if _, err := f.transfer.Paste(ctx, doc, intp(3)); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	f.wantContents(doc, []string{"P1", "P2", "P3", "P1"})

	// Cut the middle pair and move it to the front.
	if err := f.transfer.Cut(ctx, doc, []int{1, 2}); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	f.wantContents(doc, []string{"P1", "P1"})
	if _, err := f.transfer.Paste(ctx, doc, intp(0)); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	f.wantContents(doc, []string{"P2", "P3", "P1", "P1"})
}

func TestPasteClampsInsertIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.makeDoc("Source", "A")
	dst := f.makeDoc("Target", "X")

	if err := f.transfer.Copy(ctx, src, []int{0}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	inserted, err := f.transfer.Paste(ctx, dst, intp(99))
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if diff := cmp.Diff([]int{1}, inserted); diff != "" {
		t.Errorf("inserted positions (-want +got):\n%s", diff)
	}
	f.wantContents(dst, []string{"X", "A"})
}

func TestPasteEmptyClipboardIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A")

	inserted, err := f.transfer.Paste(ctx, doc, nil)
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if inserted != nil {
		t.Errorf("inserted = %v, want nil", inserted)
	}
	f.wantContents(doc, []string{"A"})
}

// ── Drafts ─────────────────────────────────────────────────

func TestDraftPagesAreExcluded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A", "B")
	dst := f.makeDoc("Target")

	// Start a scan session; pages appended from here on are provisional.
	f.library.Scans().Begin(doc, 2)
	if _, err := f.library.AppendScannedPage(ctx, doc, domain.PageScan, []byte("C"), 0, 0); err != nil {
		t.Fatalf("AppendScannedPage: %v", err)
	}
	f.wantContents(doc, []string{"A", "B", "C"})

	kept, err := f.transfer.TransferableSelection(doc, []int{0, 2})
	if err != nil {
		t.Fatalf("TransferableSelection: %v", err)
	}
	if diff := cmp.Diff([]int{0}, kept); diff != "" {
		t.Errorf("transferable positions (-want +got):\n%s", diff)
	}

	if err := f.transfer.Copy(ctx, doc, []int{0, 2}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if _, err := f.transfer.Paste(ctx, dst, nil); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	f.wantContents(dst, []string{"A"})
}

func TestAllDraftSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A")

	f.library.Scans().Begin(doc, 1)
	if _, err := f.library.AppendScannedPage(ctx, doc, domain.PageScan, []byte("B"), 0, 0); err != nil {
		t.Fatalf("AppendScannedPage: %v", err)
	}

	err := f.transfer.Copy(ctx, doc, []int{1})
	if domain.CodeOf(err) != domain.CodeNoTransferablePages {
		t.Errorf("error = %v, want no_transferable_pages", err)
	}
	if f.transfer.HasClipboardContent() {
		t.Error("all-draft copy left a payload on the clipboard")
	}

	// Committing the session makes the page transferable.
	f.library.Scans().Commit(doc)
	if err := f.transfer.Copy(ctx, doc, []int{1}); err != nil {
		t.Fatalf("Copy after commit: %v", err)
	}
}

// ── Limits and availability ────────────────────────────────

func TestSelectionCapRejectsBeforeMutation(t *testing.T) {
	ctx := context.Background()
	engine := deepcopy.NewEngine()
	engine.MaxPages = 2
	f := newFixtureWithEngine(t, engine)
	doc := f.makeDoc("Doc", "A", "B", "C")

	if err := f.transfer.Copy(ctx, doc, []int{0, 1, 2}); domain.CodeOf(err) != domain.CodeSelectionTooLarge {
		t.Errorf("Copy error = %v, want selection_too_large", err)
	}
	if err := f.transfer.Cut(ctx, doc, []int{0, 1, 2}); domain.CodeOf(err) != domain.CodeSelectionTooLarge {
		t.Errorf("Cut error = %v, want selection_too_large", err)
	}
	f.wantContents(doc, []string{"A", "B", "C"})
	if f.transfer.HasClipboardContent() {
		t.Error("oversized selection reached the clipboard")
	}
	if got := f.transfer.UndoLabel(doc); got != "" {
		t.Errorf("rejected cut recorded an undo entry: %q", got)
	}
}

func TestDocumentAvailabilityGates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A", "B")
	src := f.makeDoc("Source", "X")

	if err := f.transfer.Copy(ctx, src, []int{0}); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	if err := f.library.SetStatus(ctx, doc, domain.StatusReadOnly); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := f.transfer.Cut(ctx, doc, []int{0}); domain.CodeOf(err) != domain.CodeDocumentReadOnly {
		t.Errorf("Cut on readonly = %v, want document_read_only", err)
	}
	if _, err := f.transfer.Paste(ctx, doc, nil); domain.CodeOf(err) != domain.CodeDocumentReadOnly {
		t.Errorf("Paste on readonly = %v, want document_read_only", err)
	}
	// Reading is still allowed.
	if err := f.transfer.Copy(ctx, doc, []int{0}); err != nil {
		t.Errorf("Copy on readonly: %v", err)
	}

	if err := f.library.SetStatus(ctx, doc, domain.StatusConflicted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := f.transfer.Cut(ctx, doc, []int{0}); domain.CodeOf(err) != domain.CodeDocumentConflicted {
		t.Errorf("Cut on conflicted = %v, want document_conflicted", err)
	}

	if err := f.library.SetStatus(ctx, doc, domain.StatusUnavailable); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := f.transfer.Copy(ctx, doc, []int{0}); domain.CodeOf(err) != domain.CodeDocumentUnavailable {
		t.Errorf("Copy on unavailable = %v, want document_unavailable", err)
	}
	f.wantContents(doc, []string{"A", "B"})
}

// ── Undo / redo ────────────────────────────────────────────

func TestUndoRedoPaste(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.makeDoc("Source", "A")
	dst := f.makeDoc("Target", "X")

	if err := f.transfer.Copy(ctx, src, []int{0}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if _, err := f.transfer.Paste(ctx, dst, intp(0)); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	f.wantContents(dst, []string{"A", "X"})

	label, err := f.transfer.Undo(ctx, dst)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if label != "Paste Pages" {
		t.Errorf("Undo label = %q, want Paste Pages", label)
	}
	f.wantContents(dst, []string{"X"})
	if diff := cmp.Diff([]string{"X"}, f.persistedContents(dst)); diff != "" {
		t.Errorf("persisted pages after undo (-want +got):\n%s", diff)
	}

	if got := f.transfer.RedoLabel(dst); got != "Paste Pages" {
		t.Errorf("RedoLabel = %q, want Paste Pages", got)
	}
	if _, err := f.transfer.Redo(ctx, dst); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	f.wantContents(dst, []string{"A", "X"})
}

func TestUndoCutRestoresExactState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A", "B", "C")

	if err := f.transfer.Cut(ctx, doc, []int{0, 2}); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	f.wantContents(doc, []string{"B"})

	label, err := f.transfer.Undo(ctx, doc)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if label != "Cut Pages" {
		t.Errorf("Undo label = %q, want Cut Pages", label)
	}
	f.wantContents(doc, []string{"A", "B", "C"})
}

func TestUndoOnEmptyHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.makeDoc("Doc", "A")

	label, err := f.transfer.Undo(ctx, doc)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if label != "" {
		t.Errorf("Undo label = %q, want empty", label)
	}
	f.wantContents(doc, []string{"A"})
}
