package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"paperstack/internal/clipboard"
	"paperstack/internal/codec"
	"paperstack/internal/deepcopy"
	"paperstack/internal/domain"
	"paperstack/internal/pagestore"
	"paperstack/internal/undo"
)

// ─────────────────────────────────────────────────────────────
// Transfer Service — copy / cut / paste / move between documents
// ─────────────────────────────────────────────────────────────

// Undo labels shown in the Edit menu.
const (
	labelCutPages   = "Cut Pages"
	labelPastePages = "Paste Pages"
	labelMovePages  = "Move Pages"
)

// DraftRanges reports provisional pages, which are excluded from transfers.
// Implemented by ScanSessions.
type DraftRanges interface {
	IsDraft(documentID string, position int) bool
}

// TransferService orchestrates page transfer between documents: it filters
// drafts, builds payloads through the deep-copy engine, holds them in the
// clipboard manager, and applies pastes as single atomic store mutations
// with one undo journal entry each.
type TransferService struct {
	library *LibraryService
	engine  *deepcopy.Engine
	clip    *clipboard.Manager
	journal *undo.Journal
	drafts  DraftRanges
	emitter EventEmitter

	// Last recorded UI selection per document; feeds the default insert
	// index. For a cut these are the pre-removal positions.
	selection map[string][]int
}

// NewTransferService creates a TransferService.
func NewTransferService(
	library *LibraryService,
	engine *deepcopy.Engine,
	clip *clipboard.Manager,
	journal *undo.Journal,
	drafts DraftRanges,
	emitter EventEmitter,
) *TransferService {
	return &TransferService{
		library:   library,
		engine:    engine,
		clip:      clip,
		journal:   journal,
		drafts:    drafts,
		emitter:   emitter,
		selection: make(map[string][]int),
	}
}

// HasClipboardContent is the cheap observable backing paste affordances.
func (s *TransferService) HasClipboardContent() bool {
	return s.clip.HasPayload()
}

// SetSelection records the UI selection for a document. The default paste
// index is derived from it.
func (s *TransferService) SetSelection(documentID string, indices []int) {
	s.selection[documentID] = append([]int(nil), indices...)
}

// TransferableSelection returns the selected positions that may take part
// in a transfer, drafts excluded and sorted ascending. An all-draft result
// is an empty slice, distinct from the availability errors.
func (s *TransferService) TransferableSelection(documentID string, indices []int) ([]int, error) {
	if err := s.library.CheckReadable(documentID); err != nil {
		return nil, err
	}
	kept := make([]int, 0, len(indices))
	for _, i := range indices {
		if !s.drafts.IsDraft(documentID, i) {
			kept = append(kept, i)
		}
	}
	sort.Ints(kept)
	return kept, nil
}

// Copy builds a copy payload from the non-draft selection and places it on
// the clipboard. The source document is not mutated; the payload can be
// pasted repeatedly, including into multiple targets.
func (s *TransferService) Copy(ctx context.Context, documentID string, indices []int) error {
	if len(indices) == 0 {
		return domain.NewError(domain.CodeSelectionEmpty, nil)
	}
	kept, err := s.TransferableSelection(documentID, indices)
	if err != nil {
		return err
	}
	if len(kept) == 0 {
		return domain.NewError(domain.CodeNoTransferablePages, nil)
	}
	store, err := s.library.OpenDocument(documentID)
	if err != nil {
		return domain.NewError(domain.CodeDocumentUnavailable, err)
	}

	payload, err := s.buildPayload(store, documentID, domain.OpCopy, kept)
	if err != nil {
		return err
	}
	if err := s.clip.SetPayload(ctx, payload); err != nil {
		return err
	}
	s.SetSelection(documentID, kept)
	return nil
}

// Cut builds a cut payload, removes the pages from the source immediately,
// and registers one "Cut Pages" undo entry. The payload carries the full
// pre-removal snapshot so the source can be restored without a paste.
func (s *TransferService) Cut(ctx context.Context, documentID string, indices []int) error {
	if len(indices) == 0 {
		return domain.NewError(domain.CodeSelectionEmpty, nil)
	}
	if err := s.library.CheckWritable(documentID); err != nil {
		return err
	}
	kept, err := s.TransferableSelection(documentID, indices)
	if err != nil {
		return err
	}
	if len(kept) == 0 {
		return domain.NewError(domain.CodeNoTransferablePages, nil)
	}
	store, err := s.library.OpenDocument(documentID)
	if err != nil {
		return domain.NewError(domain.CodeDocumentUnavailable, err)
	}

	snapshot, err := store.Snapshot()
	if err != nil {
		return domain.NewError(domain.CodeSerializationFailure, err)
	}
	payload, err := s.buildPayload(store, documentID, domain.OpCut, kept)
	if err != nil {
		return err
	}
	payload.CutSnapshot = snapshot
	payload.CutPositions = kept

	// The document may have gone read-only or conflicted while the payload
	// was being built.
	if err := s.library.CheckWritable(documentID); err != nil {
		return err
	}
	if err := store.RemoveAt(kept); err != nil {
		return domain.NewError(domain.CodeSerializationFailure, err)
	}
	if err := s.library.SaveDocument(ctx, documentID); err != nil {
		_ = store.Restore(snapshot)
		return fmt.Errorf("cut pages: %w", err)
	}

	if err := s.clip.SetPayload(ctx, payload); err != nil {
		_ = store.Restore(snapshot)
		_ = s.library.SaveDocument(ctx, documentID)
		return err
	}
	if err := s.journal.Push(documentID, labelCutPages, snapshot); err != nil {
		log.Printf("transfer: record cut undo: %v", err)
	}
	s.SetSelection(documentID, kept)
	return nil
}

// Paste inserts the clipboard payload into the target document. A nil
// insertIndex means "one past the highest recorded selection, else end".
// It returns the positions of the inserted pages, which become the new
// selection. An empty or invalid clipboard is a no-op, never an error.
func (s *TransferService) Paste(ctx context.Context, documentID string, insertIndex *int) ([]int, error) {
	if err := s.library.CheckWritable(documentID); err != nil {
		return nil, err
	}
	p := s.clip.Payload(ctx)
	if p == nil {
		return nil, nil
	}
	// Decoding the pack is the deep copy: parsed pages share nothing with
	// the payload or any source document. For a same-document move these
	// are the originally captured pages, not a re-serialization.
	pages, err := codec.DecodePages(p.Pages)
	if err != nil {
		// Validated at set time, so this is foreign damage; drop it.
		log.Printf("transfer: clipboard pack unreadable: %v", err)
		s.clip.Clear(ctx)
		return nil, nil
	}
	if len(pages) == 0 {
		return nil, domain.NewError(domain.CodeInsertionFailure, nil)
	}
	store, err := s.library.OpenDocument(documentID)
	if err != nil {
		return nil, domain.NewError(domain.CodeDocumentUnavailable, err)
	}

	move := p.Op == domain.OpCut && p.SourceDocumentID == documentID
	idx := s.resolveInsertIndex(documentID, store, insertIndex, p, move)

	pre, err := store.Snapshot()
	if err != nil {
		return nil, domain.NewError(domain.CodeSerializationFailure, err)
	}

	// Re-check availability immediately before the write: an external sync
	// event may have flagged the target since validation.
	if err := s.library.CheckWritable(documentID); err != nil {
		return nil, err
	}
	if err := store.InsertAt(idx, pages); err != nil {
		return nil, domain.NewError(domain.CodeInsertionFailure, err)
	}
	if err := s.library.SaveDocument(ctx, documentID); err != nil {
		// Mutation-time failure: restore the pre-mutation snapshot rather
		// than leave a half-modified document.
		_ = store.Restore(pre)
		return nil, fmt.Errorf("paste pages: %w", err)
	}

	if move {
		// One atomic "Move Pages" entry spanning cut+paste: the cut's own
		// entry is collapsed and the undo snapshot is the pre-cut state.
		// If something else was recorded since the cut, undo only to the
		// pre-paste state so intermediate operations survive.
		undoSnapshot := pre
		if s.journal.PeekUndo(documentID) == labelCutPages {
			s.journal.DropUndo(documentID)
			undoSnapshot = p.CutSnapshot
		}
		if err := s.journal.Push(documentID, labelMovePages, undoSnapshot); err != nil {
			log.Printf("transfer: record move undo: %v", err)
		}
	} else {
		if err := s.journal.Push(documentID, labelPastePages, pre); err != nil {
			log.Printf("transfer: record paste undo: %v", err)
		}
	}

	inserted := make([]int, len(pages))
	for i := range inserted {
		inserted[i] = idx + i
	}
	s.selection[documentID] = inserted

	// Cut payloads are consumed by a successful paste; copy payloads stay
	// for repeated pasting.
	if p.Op == domain.OpCut {
		s.clip.MarkConsumed()
		s.clip.Clear(ctx)
	}
	s.emitter.Emit(ctx, "transfer:pasted", map[string]any{
		"documentId": documentID,
		"insertedAt": idx,
		"count":      len(pages),
	})
	return inserted, nil
}

// RestoreCut reapplies the cut snapshot to the source document wholesale
// and clears the clipboard — an escape hatch that works independently of
// the undo stack. Without a held, un-pasted cut payload it is a no-op.
func (s *TransferService) RestoreCut(ctx context.Context) error {
	p := s.clip.Payload(ctx)
	if p == nil || p.Op != domain.OpCut {
		return nil
	}
	documentID := p.SourceDocumentID
	if err := s.library.CheckWritable(documentID); err != nil {
		return err
	}
	store, err := s.library.OpenDocument(documentID)
	if err != nil {
		return domain.NewError(domain.CodeDocumentUnavailable, err)
	}
	if err := store.Restore(p.CutSnapshot); err != nil {
		return domain.NewError(domain.CodeClipboardPayloadInvalid, err)
	}
	if err := s.library.SaveDocument(ctx, documentID); err != nil {
		return fmt.Errorf("restore cut: %w", err)
	}
	s.clip.Clear(ctx)
	return nil
}

// ── Undo / redo ────────────────────────────────────────────

// Undo applies the top undo entry for a document and re-registers the
// forward state as redo. It returns the applied entry's label, or "" when
// there was nothing to undo.
func (s *TransferService) Undo(ctx context.Context, documentID string) (string, error) {
	return s.applyHistory(ctx, documentID, s.journal.Undo)
}

// Redo applies the top redo entry for a document.
func (s *TransferService) Redo(ctx context.Context, documentID string) (string, error) {
	return s.applyHistory(ctx, documentID, s.journal.Redo)
}

// UndoLabel returns the label of the next undoable action for menu titles.
func (s *TransferService) UndoLabel(documentID string) string {
	return s.journal.PeekUndo(documentID)
}

// RedoLabel returns the label of the next redoable action.
func (s *TransferService) RedoLabel(documentID string) string {
	return s.journal.PeekRedo(documentID)
}

func (s *TransferService) applyHistory(
	ctx context.Context,
	documentID string,
	swap func(string, []byte) (string, []byte, error),
) (string, error) {
	if err := s.library.CheckWritable(documentID); err != nil {
		return "", err
	}
	store, err := s.library.OpenDocument(documentID)
	if err != nil {
		return "", domain.NewError(domain.CodeDocumentUnavailable, err)
	}
	current, err := store.Snapshot()
	if err != nil {
		return "", domain.NewError(domain.CodeSerializationFailure, err)
	}
	label, snapshot, err := swap(documentID, current)
	if errors.Is(err, undo.ErrNothingToUndo) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if err := store.Restore(snapshot); err != nil {
		return "", fmt.Errorf("apply history snapshot: %w", err)
	}
	if err := s.library.SaveDocument(ctx, documentID); err != nil {
		_ = store.Restore(current)
		return "", fmt.Errorf("persist history snapshot: %w", err)
	}
	return label, nil
}

// ── Internals ──────────────────────────────────────────────

func (s *TransferService) buildPayload(
	store *pagestore.Store,
	documentID string,
	op domain.TransferOp,
	positions []int,
) (*domain.TransferPayload, error) {
	pages, err := s.engine.CopyPages(store, positions)
	if err != nil {
		return nil, err
	}
	degraded := false
	for i := range pages {
		if pages[i].Degraded {
			degraded = true
			break
		}
	}
	pack, err := codec.EncodePages(pages)
	if err != nil {
		return nil, domain.NewError(domain.CodeSerializationFailure, err)
	}
	return &domain.TransferPayload{
		ID:               uuid.New().String(),
		Version:          domain.PayloadVersion,
		SourceDocumentID: documentID,
		Op:               op,
		PageCount:        len(pages),
		Pages:            pack,
		Degraded:         degraded,
		CreatedAt:        time.Now(),
	}, nil
}

// resolveInsertIndex computes where a paste lands. An explicit index is in
// the target's current page ordering and is only clamped. The default is
// one past the highest recorded selection; for a same-document move that
// selection predates the cut, so it is shifted down by the number of cut
// positions below it before clamping.
func (s *TransferService) resolveInsertIndex(
	documentID string,
	store *pagestore.Store,
	requested *int,
	p *domain.TransferPayload,
	move bool,
) int {
	if requested != nil {
		return clamp(*requested, 0, store.Len())
	}
	sel := s.selection[documentID]
	if len(sel) == 0 {
		return store.Len()
	}
	idx := sel[0]
	for _, v := range sel {
		if v > idx {
			idx = v
		}
	}
	idx++
	if move {
		below := 0
		for _, c := range p.CutPositions {
			if c < idx {
				below++
			}
		}
		idx -= below
	}
	return clamp(idx, 0, store.Len())
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
