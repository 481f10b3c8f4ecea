// Package pagestore holds the ordered page collection of one open document.
// All mutation happens on the UI-owning goroutine; the store does no
// locking of its own.
package pagestore

import (
	"fmt"
	"sort"

	"paperstack/internal/codec"
	"paperstack/internal/domain"
)

// Store owns the ordered pages of a single document.
type Store struct {
	documentID string
	pages      []domain.Page
}

// New creates a store for documentID holding pages.
func New(documentID string, pages []domain.Page) *Store {
	return &Store{documentID: documentID, pages: pages}
}

func (s *Store) DocumentID() string { return s.documentID }

func (s *Store) Len() int { return len(s.pages) }

// PageAt returns the page at position i.
func (s *Store) PageAt(i int) (*domain.Page, error) {
	if i < 0 || i >= len(s.pages) {
		return nil, fmt.Errorf("page position %d out of range [0,%d)", i, len(s.pages))
	}
	return &s.pages[i], nil
}

// Pages returns the current page list. The slice is a copy; the page values
// still reference the store's buffers, so callers that need independent
// pages must go through the deep-copy engine.
func (s *Store) Pages() []domain.Page {
	return append([]domain.Page(nil), s.pages...)
}

// InsertAt inserts pages before position index. index == Len appends.
func (s *Store) InsertAt(index int, pages []domain.Page) error {
	if index < 0 || index > len(s.pages) {
		return fmt.Errorf("insert position %d out of range [0,%d]", index, len(s.pages))
	}
	if len(pages) == 0 {
		return fmt.Errorf("no pages to insert")
	}
	out := make([]domain.Page, 0, len(s.pages)+len(pages))
	out = append(out, s.pages[:index]...)
	out = append(out, pages...)
	out = append(out, s.pages[index:]...)
	s.pages = out
	return nil
}

// ExtractAt removes the pages at the given positions and returns them in
// their original relative order. Positions must be unique and in range; on
// any validation error the store is left unchanged.
func (s *Store) ExtractAt(positions []int) ([]domain.Page, error) {
	sorted, err := s.checkPositions(positions)
	if err != nil {
		return nil, err
	}
	removed := make([]domain.Page, 0, len(sorted))
	for _, p := range sorted {
		removed = append(removed, s.pages[p])
	}
	// Remove from the back so earlier positions stay valid.
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		s.pages = append(s.pages[:p], s.pages[p+1:]...)
	}
	return removed, nil
}

// RemoveAt removes the pages at the given positions.
func (s *Store) RemoveAt(positions []int) error {
	_, err := s.ExtractAt(positions)
	return err
}

// Replace swaps the entire page list, used by snapshot restore.
func (s *Store) Replace(pages []domain.Page) {
	s.pages = pages
}

// Snapshot encodes the full current page list.
func (s *Store) Snapshot() ([]byte, error) {
	return codec.EncodePages(s.pages)
}

// Restore replaces the store's content with a previously taken snapshot.
func (s *Store) Restore(snapshot []byte) error {
	pages, err := codec.DecodePages(snapshot)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.pages = pages
	return nil
}

func (s *Store) checkPositions(positions []int) ([]int, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("no positions given")
	}
	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)
	for i, p := range sorted {
		if p < 0 || p >= len(s.pages) {
			return nil, fmt.Errorf("page position %d out of range [0,%d)", p, len(s.pages))
		}
		if i > 0 && sorted[i-1] == p {
			return nil, fmt.Errorf("duplicate page position %d", p)
		}
	}
	return sorted, nil
}
