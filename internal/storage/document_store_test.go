package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"paperstack/internal/domain"
	"paperstack/internal/storage"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), filepath.Join(dir, "documents"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newDoc(title string) *domain.Document {
	id := uuid.New().String()
	return &domain.Document{ID: id, Title: title, RelPath: id + ".pspack", Status: domain.StatusAvailable}
}

func TestDocumentCRUD(t *testing.T) {
	store := storage.NewDocumentStore(newTestDB(t))

	d := newDoc("Tax Returns")
	if err := store.CreateDocument(d); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	got, err := store.GetDocument(d.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != "Tax Returns" || got.Status != domain.StatusAvailable {
		t.Errorf("got %+v", got)
	}

	got.Title = "Tax Returns 2026"
	got.Status = domain.StatusReadOnly
	if err := store.UpdateDocument(got); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	got2, err := store.GetDocument(d.ID)
	if err != nil {
		t.Fatalf("GetDocument after update: %v", err)
	}
	if got2.Title != "Tax Returns 2026" || got2.Status != domain.StatusReadOnly {
		t.Errorf("update not persisted: %+v", got2)
	}

	docs, err := store.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("listed %d documents, want 1", len(docs))
	}

	if err := store.DeleteDocument(d.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := store.GetDocument(d.ID); err == nil {
		t.Error("GetDocument succeeded after delete")
	}
}

func TestReplaceDocumentPages(t *testing.T) {
	store := storage.NewDocumentStore(newTestDB(t))

	d := newDoc("Scans")
	if err := store.CreateDocument(d); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	pages := []domain.Page{
		{
			ID:        uuid.New().String(),
			Kind:      domain.PageScan,
			Content:   []byte("first"),
			Width:     612,
			Height:    792,
			CreatedAt: time.Now(),
		},
		{
			ID:      uuid.New().String(),
			Kind:    domain.PageImported,
			Content: []byte("second"),
			Resources: []domain.Resource{
				{ID: "r1", Kind: "image", Data: []byte("pixels")},
			},
			CreatedAt: time.Now(),
		},
	}
	if err := store.ReplaceDocumentPages(d.ID, pages); err != nil {
		t.Fatalf("ReplaceDocumentPages: %v", err)
	}

	loaded, err := store.LoadPages(d.ID)
	if err != nil {
		t.Fatalf("LoadPages: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d pages, want 2", len(loaded))
	}
	for i := range loaded {
		if !loaded[i].ContentEquals(&pages[i]) {
			t.Errorf("page %d content changed across persistence", i)
		}
	}

	got, err := store.GetDocument(d.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.PageCount != 2 {
		t.Errorf("page count = %d, want 2", got.PageCount)
	}

	// A replace fully supersedes the previous page set.
	if err := store.ReplaceDocumentPages(d.ID, pages[:1]); err != nil {
		t.Fatalf("ReplaceDocumentPages shrink: %v", err)
	}
	loaded, err = store.LoadPages(d.ID)
	if err != nil {
		t.Fatalf("LoadPages after shrink: %v", err)
	}
	contents := make([]string, len(loaded))
	for i := range loaded {
		contents[i] = string(loaded[i].Content)
	}
	if diff := cmp.Diff([]string{"first"}, contents); diff != "" {
		t.Errorf("pages after shrink (-want +got):\n%s", diff)
	}
}

func TestDeleteDocumentRemovesPages(t *testing.T) {
	db := newTestDB(t)
	store := storage.NewDocumentStore(db)

	d := newDoc("Doomed")
	if err := store.CreateDocument(d); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	pages := []domain.Page{{ID: uuid.New().String(), Kind: domain.PageScan, Content: []byte("x")}}
	if err := store.ReplaceDocumentPages(d.ID, pages); err != nil {
		t.Fatalf("ReplaceDocumentPages: %v", err)
	}
	if err := store.DeleteDocument(d.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	var count int
	if err := db.Conn().QueryRow(
		`SELECT COUNT(*) FROM document_pages WHERE document_id = ?`, d.ID,
	).Scan(&count); err != nil {
		t.Fatalf("count pages: %v", err)
	}
	if count != 0 {
		t.Errorf("%d orphan pages left after delete", count)
	}
}
