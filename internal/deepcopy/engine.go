// Package deepcopy produces pages that are fully independent of their
// source store, using a tiered fallback per page: native clone where it
// cannot alias shared sub-resources, encode-then-reparse as the default-safe
// tier, and a logged degraded wrap of the original as a last resort.
package deepcopy

import (
	"fmt"
	"log"
	"runtime"

	"github.com/google/uuid"

	"paperstack/internal/codec"
	"paperstack/internal/domain"
	"paperstack/internal/pagestore"
)

const (
	// DefaultChunkSize is the batch size above which a selection is
	// processed in fixed-size chunks with a yield between them.
	DefaultChunkSize = 50
	// DefaultMaxPages is the hard cap on a single selection. Selections
	// above it are rejected before any work starts.
	DefaultMaxPages = 200
)

// Engine copies pages out of a store.
type Engine struct {
	ChunkSize int
	MaxPages  int
	// AllowDegraded permits the tier-3 wrap of the original page when the
	// safe tiers fail. Degraded copies still alias the source.
	AllowDegraded bool
	// Yield is called between chunks to keep the owning context responsive.
	// Nil falls back to runtime.Gosched.
	Yield func()
}

// NewEngine returns an engine with the default limits.
func NewEngine() *Engine {
	return &Engine{ChunkSize: DefaultChunkSize, MaxPages: DefaultMaxPages, AllowDegraded: true}
}

// CopyPages deep-copies the pages at positions out of store, preserving the
// relative order of positions as given. If any page fails every tier the
// whole operation aborts with SerializationFailure and nothing is returned.
func (e *Engine) CopyPages(store *pagestore.Store, positions []int) ([]domain.Page, error) {
	if len(positions) == 0 {
		return nil, domain.NewError(domain.CodeSelectionEmpty, nil)
	}
	if len(positions) > e.MaxPages {
		return nil, domain.NewError(domain.CodeSelectionTooLarge,
			fmt.Errorf("%d pages selected, cap is %d", len(positions), e.MaxPages))
	}

	out := make([]domain.Page, 0, len(positions))
	for start := 0; start < len(positions); start += e.ChunkSize {
		end := min(start+e.ChunkSize, len(positions))
		// Per-chunk transient buffers go out of scope before the next batch,
		// keeping peak memory independent of the selection size.
		for _, pos := range positions[start:end] {
			src, err := store.PageAt(pos)
			if err != nil {
				return nil, domain.NewError(domain.CodeSerializationFailure, err)
			}
			c, err := e.copyPage(src)
			if err != nil {
				return nil, domain.NewError(domain.CodeSerializationFailure,
					fmt.Errorf("page at %d: %w", pos, err))
			}
			out = append(out, *c)
		}
		if end < len(positions) {
			e.yield()
		}
	}
	return out, nil
}

// copyPage runs the tier ladder for one page; first success wins.
func (e *Engine) copyPage(src *domain.Page) (*domain.Page, error) {
	// Tier 1: native clone, safe only when nothing can alias.
	if !src.HasSharedResources() && len(src.Content) > 0 {
		c := src.Clone()
		c.ID = uuid.New().String()
		return c, nil
	}

	// Tier 2: encode and reparse, independent by construction.
	c, tier2Err := reparse(src)
	if tier2Err == nil {
		c.ID = uuid.New().String()
		return c, nil
	}

	// Tier 3: wrap the original reference. The copy still aliases the
	// source, so it is flagged and the payload it ends up in must not leave
	// the process.
	if e.AllowDegraded && len(src.Content) > 0 {
		log.Printf("deepcopy: degraded copy of page %s: %v", src.ID, tier2Err)
		w := *src
		w.Degraded = true
		return &w, nil
	}

	return nil, fmt.Errorf("all copy tiers failed: %w", tier2Err)
}

func reparse(src *domain.Page) (*domain.Page, error) {
	data, err := codec.EncodePages([]domain.Page{*src})
	if err != nil {
		return nil, err
	}
	pages, err := codec.DecodePages(data)
	if err != nil {
		return nil, err
	}
	if len(pages) != 1 {
		return nil, fmt.Errorf("round trip produced %d pages", len(pages))
	}
	return &pages[0], nil
}

func (e *Engine) yield() {
	if e.Yield != nil {
		e.Yield()
		return
	}
	runtime.Gosched()
}
