package domain

import "time"

// DocumentStatus describes whether a document can currently be mutated.
type DocumentStatus string

const (
	StatusAvailable   DocumentStatus = "available"
	StatusReadOnly    DocumentStatus = "readonly"
	StatusConflicted  DocumentStatus = "conflicted"
	StatusUnavailable DocumentStatus = "unavailable"
)

// Document is a catalog entry for one paginated document.
type Document struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	RelPath   string         `json:"relPath"` // container file relative to the documents dir
	Status    DocumentStatus `json:"status"`
	PageCount int            `json:"pageCount"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// DocumentStore persists the document catalog and page contents.
type DocumentStore interface {
	CreateDocument(d *Document) error
	GetDocument(id string) (*Document, error)
	ListDocuments() ([]Document, error)
	UpdateDocument(d *Document) error
	DeleteDocument(id string) error

	LoadPages(documentID string) ([]Page, error)
	ReplaceDocumentPages(documentID string, pages []Page) error
}
