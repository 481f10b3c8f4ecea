package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"paperstack/internal/domain"
)

// DocumentStore implements domain.DocumentStore using SQLite.
type DocumentStore struct {
	db *DB
}

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) CreateDocument(d *domain.Document) error {
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = domain.StatusAvailable
	}
	_, err := s.db.Conn().Exec(
		`INSERT INTO documents (id, title, rel_path, status, page_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.RelPath, d.Status, d.PageCount, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (s *DocumentStore) GetDocument(id string) (*domain.Document, error) {
	d := &domain.Document{}
	err := s.db.Conn().QueryRow(
		`SELECT id, title, rel_path, status, page_count, created_at, updated_at FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.RelPath, &d.Status, &d.PageCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (s *DocumentStore) ListDocuments() ([]domain.Document, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, title, rel_path, status, page_count, created_at, updated_at FROM documents ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.RelPath, &d.Status, &d.PageCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *DocumentStore) UpdateDocument(d *domain.Document) error {
	d.UpdatedAt = time.Now()
	_, err := s.db.Conn().Exec(
		`UPDATE documents SET title = ?, rel_path = ?, status = ?, page_count = ?, updated_at = ? WHERE id = ?`,
		d.Title, d.RelPath, d.Status, d.PageCount, d.UpdatedAt, d.ID,
	)
	return err
}

func (s *DocumentStore) DeleteDocument(id string) error {
	if _, err := s.db.Conn().Exec(`DELETE FROM document_pages WHERE document_id = ?`, id); err != nil {
		return err
	}
	if _, err := s.db.Conn().Exec(`DELETE FROM undo_entries WHERE document_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.Conn().Exec(`DELETE FROM documents WHERE id = ?`, id)
	return err
}

// LoadPages returns a document's pages in order.
func (s *DocumentStore) LoadPages(documentID string) ([]domain.Page, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, kind, content, width, height, resources_json, created_at
		 FROM document_pages WHERE document_id = ? ORDER BY position ASC`, documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		var p domain.Page
		var resJSON string
		if err := rows.Scan(&p.ID, &p.Kind, &p.Content, &p.Width, &p.Height, &resJSON, &p.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(resJSON), &p.Resources); err != nil {
			return nil, fmt.Errorf("decode page resources: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// ReplaceDocumentPages atomically replaces all pages of a document and
// updates its page count. Used by save and by undo/redo restore.
func (s *DocumentStore) ReplaceDocumentPages(documentID string, pages []domain.Page) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM document_pages WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("delete pages: %w", err)
	}

	for i, p := range pages {
		resJSON, err := json.Marshal(p.Resources)
		if err != nil {
			return fmt.Errorf("encode page resources: %w", err)
		}
		created := p.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		_, err = tx.Exec(
			`INSERT INTO document_pages (id, document_id, position, kind, content, width, height, resources_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, documentID, i, p.Kind, p.Content, p.Width, p.Height, string(resJSON), created,
		)
		if err != nil {
			return fmt.Errorf("insert page %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(
		`UPDATE documents SET page_count = ?, updated_at = ? WHERE id = ?`,
		len(pages), time.Now(), documentID,
	); err != nil {
		return fmt.Errorf("update page count: %w", err)
	}

	return tx.Commit()
}
