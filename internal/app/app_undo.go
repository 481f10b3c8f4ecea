package app

// ─────────────────────────────────────────────────────────────
// Undo / Redo
// ─────────────────────────────────────────────────────────────

// Undo reverts the last page operation on a document and returns its label.
func (a *App) Undo(documentID string) (string, error) {
	return a.transfer.Undo(a.ctx, documentID)
}

// Redo re-applies the last undone operation.
func (a *App) Redo(documentID string) (string, error) {
	return a.transfer.Redo(a.ctx, documentID)
}

// UndoLabel returns the menu title for the next undo ("Cut Pages", ...).
func (a *App) UndoLabel(documentID string) string {
	return a.transfer.UndoLabel(documentID)
}

// RedoLabel returns the menu title for the next redo.
func (a *App) RedoLabel(documentID string) string {
	return a.transfer.RedoLabel(documentID)
}
