package app

// ─────────────────────────────────────────────────────────────
// Document Handlers — thin delegates to LibraryService
// ─────────────────────────────────────────────────────────────

import (
	"encoding/base64"
	"strings"

	"paperstack/internal/domain"
)

// ── Library ────────────────────────────────────────────────

func (a *App) ListDocuments() ([]domain.Document, error) {
	return a.library.ListDocuments()
}

func (a *App) CreateDocument(title string) (*domain.Document, error) {
	return a.library.CreateDocument(title)
}

func (a *App) RenameDocument(id, title string) error {
	return a.library.RenameDocument(id, title)
}

func (a *App) DeleteDocument(id string) error {
	return a.library.DeleteDocument(id)
}

// GetDocumentPages returns the current page list of a document.
func (a *App) GetDocumentPages(id string) ([]domain.Page, error) {
	store, err := a.library.OpenDocument(id)
	if err != nil {
		return nil, err
	}
	return store.Pages(), nil
}

// ImportInboxNow sweeps the inbox immediately and returns the number of
// imported files.
func (a *App) ImportInboxNow() (int, error) {
	return a.importer.ScanOnce(a.ctx)
}

// ── Scanning ───────────────────────────────────────────────

// BeginScanSession marks pages appended from now on as provisional.
func (a *App) BeginScanSession(documentID string) error {
	store, err := a.library.OpenDocument(documentID)
	if err != nil {
		return err
	}
	a.library.Scans().Begin(documentID, store.Len())
	return nil
}

// AppendScannedPage appends one scanned page, given as a data URL.
func (a *App) AppendScannedPage(documentID, dataURL string, width, height int) (*domain.Page, error) {
	content, err := decodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	return a.library.AppendScannedPage(a.ctx, documentID, domain.PageScan, content, width, height)
}

// CommitScanSession makes the session's pages durable and transferable.
func (a *App) CommitScanSession(documentID string) {
	a.library.Scans().Commit(documentID)
}

// decodeDataURL strips an optional data-URL prefix and decodes base64.
func decodeDataURL(dataURL string) ([]byte, error) {
	encoded := dataURL
	if i := strings.Index(dataURL, ";base64,"); i >= 0 {
		encoded = dataURL[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(encoded)
}
