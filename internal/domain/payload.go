package domain

import (
	"fmt"
	"time"
)

// TransferOp is the operation that produced a payload.
type TransferOp string

const (
	OpCopy TransferOp = "copy"
	OpCut  TransferOp = "cut"
)

// PayloadVersion is the current transfer payload format version. Payloads
// carrying any other version are rejected during validation.
const PayloadVersion = 1

// TransferPayload is the self-contained transfer unit produced by copy/cut.
// Pages holds the encoded page pack; it decodes without access to the source
// document. CutSnapshot is the full pre-removal document state, present iff
// Op is OpCut, and enables restoring the source without a paste.
type TransferPayload struct {
	ID               string     `json:"id"`
	Version          int        `json:"version"`
	SourceDocumentID string     `json:"sourceDocumentId"`
	Op               TransferOp `json:"op"`
	PageCount        int        `json:"pageCount"`
	Pages            []byte     `json:"pages"`
	CutSnapshot      []byte     `json:"cutSnapshot,omitempty"`
	CutPositions     []int      `json:"cutPositions,omitempty"`
	Degraded         bool       `json:"degraded"` // holds tier-3 copies; kept in memory only
	CreatedAt        time.Time  `json:"createdAt"`
}

// Validate checks the structural invariants of a payload. Page-count
// agreement with the encoded pack is checked separately by the clipboard
// manager, which owns the codec.
func (p *TransferPayload) Validate() error {
	if p.Version != PayloadVersion {
		return fmt.Errorf("unknown payload version %d", p.Version)
	}
	if p.Op != OpCopy && p.Op != OpCut {
		return fmt.Errorf("unknown payload operation %q", p.Op)
	}
	if p.PageCount <= 0 {
		return fmt.Errorf("payload has no pages")
	}
	if len(p.Pages) == 0 {
		return fmt.Errorf("payload page pack is empty")
	}
	if p.Op == OpCut {
		if len(p.CutSnapshot) == 0 {
			return fmt.Errorf("cut payload is missing its source snapshot")
		}
		if len(p.CutPositions) != p.PageCount {
			return fmt.Errorf("cut payload has %d positions for %d pages", len(p.CutPositions), p.PageCount)
		}
	} else if len(p.CutSnapshot) != 0 {
		return fmt.Errorf("copy payload carries a cut snapshot")
	}
	return nil
}
