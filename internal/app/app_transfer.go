package app

// ─────────────────────────────────────────────────────────────
// Transfer Handlers — thin delegates to TransferService
// ─────────────────────────────────────────────────────────────

import (
	"errors"

	"paperstack/internal/domain"
)

// TransferError is the shape returned to the frontend for coded failures:
// one short user-facing sentence plus the diagnostic code.
type TransferError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func asTransferError(err error) *TransferError {
	var e *domain.Error
	if errors.As(err, &e) {
		return &TransferError{Code: string(e.Code), Message: e.Message}
	}
	if err != nil {
		return &TransferError{Code: "internal", Message: "Something went wrong."}
	}
	return nil
}

func (a *App) CopyPages(documentID string, indices []int) *TransferError {
	return asTransferError(a.transfer.Copy(a.ctx, documentID, indices))
}

func (a *App) CutPages(documentID string, indices []int) *TransferError {
	return asTransferError(a.transfer.Cut(a.ctx, documentID, indices))
}

// PastePages pastes at insertIndex; a negative index means "after the
// current selection, else at the end". Returns the inserted positions.
func (a *App) PastePages(documentID string, insertIndex int) ([]int, *TransferError) {
	var idx *int
	if insertIndex >= 0 {
		idx = &insertIndex
	}
	inserted, err := a.transfer.Paste(a.ctx, documentID, idx)
	return inserted, asTransferError(err)
}

func (a *App) RestoreCut() *TransferError {
	return asTransferError(a.transfer.RestoreCut(a.ctx))
}

func (a *App) HasClipboardContent() bool {
	return a.transfer.HasClipboardContent()
}

func (a *App) SetSelection(documentID string, indices []int) {
	a.transfer.SetSelection(documentID, indices)
}

// TransferableSelection returns the selected positions that can transfer
// (drafts excluded); used to enable or disable copy/cut affordances.
func (a *App) TransferableSelection(documentID string, indices []int) ([]int, *TransferError) {
	kept, err := a.transfer.TransferableSelection(documentID, indices)
	return kept, asTransferError(err)
}
