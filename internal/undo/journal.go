// Package undo keeps per-document undo/redo stacks of full document
// snapshots in SQLite. Snapshots rather than diffs: memory is traded for
// correctness, and documents are already bounded by the selection cap.
package undo

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"paperstack/internal/storage"
)

const (
	stackUndo = "undo"
	stackRedo = "redo"

	// maxEntries bounds the undo history per document; oldest entries are
	// pruned first.
	maxEntries = 40
)

// ErrNothingToUndo is returned when the requested stack is empty.
var ErrNothingToUndo = errors.New("nothing to undo")

// Entry is one registered inverse action.
type Entry struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Label      string    `json:"label"` // UI display, e.g. "Cut Pages"
	Snapshot   []byte    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Journal manages undo history in SQLite.
type Journal struct {
	db *storage.DB
}

func NewJournal(db *storage.DB) *Journal {
	return &Journal{db: db}
}

// Push registers one inverse action: the pre-operation snapshot under the
// given label. Any redo history for the document is invalidated.
func (j *Journal) Push(documentID, label string, snapshot []byte) error {
	if _, err := j.db.Conn().Exec(
		`DELETE FROM undo_entries WHERE document_id = ? AND stack = ?`, documentID, stackRedo,
	); err != nil {
		return fmt.Errorf("clear redo stack: %w", err)
	}
	if err := j.push(documentID, stackUndo, label, snapshot); err != nil {
		return err
	}
	j.pruneIfNeeded(documentID)
	return nil
}

// Undo pops the top undo entry and re-registers the forward state (current)
// as redo. It returns the label and the snapshot the caller must apply.
func (j *Journal) Undo(documentID string, current []byte) (string, []byte, error) {
	return j.swap(documentID, stackUndo, stackRedo, current)
}

// Redo pops the top redo entry and re-registers current as undo.
func (j *Journal) Redo(documentID string, current []byte) (string, []byte, error) {
	return j.swap(documentID, stackRedo, stackUndo, current)
}

// PeekUndo returns the label of the next undoable action, or "" when the
// stack is empty. Used for menu item titles.
func (j *Journal) PeekUndo(documentID string) string {
	return j.peek(documentID, stackUndo)
}

// PeekRedo returns the label of the next redoable action.
func (j *Journal) PeekRedo(documentID string) string {
	return j.peek(documentID, stackRedo)
}

// DropUndo discards the top undo entry without applying it. Used when two
// recorded steps collapse into one logical operation.
func (j *Journal) DropUndo(documentID string) {
	j.db.Conn().Exec(
		`DELETE FROM undo_entries WHERE id IN (
			SELECT id FROM undo_entries WHERE document_id = ? AND stack = ?
			ORDER BY position DESC LIMIT 1
		)`, documentID, stackUndo,
	)
}

// ClearDocument removes all undo data for a document.
func (j *Journal) ClearDocument(documentID string) error {
	_, err := j.db.Conn().Exec(`DELETE FROM undo_entries WHERE document_id = ?`, documentID)
	return err
}

func (j *Journal) swap(documentID, from, to string, current []byte) (string, []byte, error) {
	var id, label string
	var snapshot []byte
	err := j.db.Conn().QueryRow(
		`SELECT id, label, snapshot FROM undo_entries
		 WHERE document_id = ? AND stack = ? ORDER BY position DESC LIMIT 1`,
		documentID, from,
	).Scan(&id, &label, &snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNothingToUndo
	}
	if err != nil {
		return "", nil, fmt.Errorf("read %s stack: %w", from, err)
	}

	if err := j.push(documentID, to, label, current); err != nil {
		return "", nil, err
	}
	if _, err := j.db.Conn().Exec(`DELETE FROM undo_entries WHERE id = ?`, id); err != nil {
		return "", nil, fmt.Errorf("pop %s stack: %w", from, err)
	}
	return label, snapshot, nil
}

func (j *Journal) push(documentID, stack, label string, snapshot []byte) error {
	var pos sql.NullInt64
	_ = j.db.Conn().QueryRow(
		`SELECT MAX(position) FROM undo_entries WHERE document_id = ? AND stack = ?`,
		documentID, stack,
	).Scan(&pos)

	_, err := j.db.Conn().Exec(
		`INSERT INTO undo_entries (id, document_id, stack, position, label, snapshot, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), documentID, stack, pos.Int64+1, label, snapshot, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("push %s entry: %w", stack, err)
	}
	return nil
}

func (j *Journal) peek(documentID, stack string) string {
	var label string
	err := j.db.Conn().QueryRow(
		`SELECT label FROM undo_entries WHERE document_id = ? AND stack = ? ORDER BY position DESC LIMIT 1`,
		documentID, stack,
	).Scan(&label)
	if err != nil {
		return ""
	}
	return label
}

// pruneIfNeeded removes the oldest undo entries when the count exceeds the
// per-document cap.
func (j *Journal) pruneIfNeeded(documentID string) {
	var count int
	if err := j.db.Conn().QueryRow(
		`SELECT COUNT(*) FROM undo_entries WHERE document_id = ? AND stack = ?`,
		documentID, stackUndo,
	).Scan(&count); err != nil || count <= maxEntries {
		return
	}
	j.db.Conn().Exec(
		`DELETE FROM undo_entries WHERE id IN (
			SELECT id FROM undo_entries WHERE document_id = ? AND stack = ?
			ORDER BY position ASC LIMIT ?
		)`, documentID, stackUndo, count-maxEntries,
	)
}
