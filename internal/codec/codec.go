// Package codec encodes subsets of document pages into a self-contained,
// versioned byte form and parses such bytes back into fresh pages. Decoded
// pages share no buffers with any source document, which makes a
// decode-after-encode round trip the safe way to deep-copy a page.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"paperstack/internal/domain"
)

// FormatVersion is the current page pack format version.
const FormatVersion = 1

// ErrUnknownVersion is returned when a pack was written by a newer (or
// otherwise unknown) format version.
var ErrUnknownVersion = errors.New("unknown page pack version")

type pagePack struct {
	Version int           `json:"version"`
	Pages   []domain.Page `json:"pages"`
}

// EncodePages serializes pages into a self-contained pack. Shared resources
// are inlined, so the result decodes without access to the source document.
// Pages with no content are rejected; they indicate a corrupt source.
func EncodePages(pages []domain.Page) ([]byte, error) {
	for i := range pages {
		if pages[i].ID == "" {
			return nil, fmt.Errorf("page %d has no id", i)
		}
		if len(pages[i].Content) == 0 {
			return nil, fmt.Errorf("page %s has no content", pages[i].ID)
		}
	}
	data, err := json.Marshal(pagePack{Version: FormatVersion, Pages: pages})
	if err != nil {
		return nil, fmt.Errorf("encode page pack: %w", err)
	}
	return data, nil
}

// DecodePages parses a pack into fresh pages. Every byte slice is newly
// allocated and resources are owned by the decoded pages themselves, so the
// Shared flag is cleared.
func DecodePages(data []byte) ([]domain.Page, error) {
	var pack pagePack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("decode page pack: %w", err)
	}
	if pack.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, pack.Version)
	}
	for i := range pack.Pages {
		for j := range pack.Pages[i].Resources {
			pack.Pages[i].Resources[j].Shared = false
		}
	}
	return pack.Pages, nil
}

// CountPages returns the number of pages in a pack without materializing
// their content.
func CountPages(data []byte) (int, error) {
	var pack struct {
		Version int               `json:"version"`
		Pages   []json.RawMessage `json:"pages"`
	}
	if err := json.Unmarshal(data, &pack); err != nil {
		return 0, fmt.Errorf("decode page pack: %w", err)
	}
	if pack.Version != FormatVersion {
		return 0, fmt.Errorf("%w: %d", ErrUnknownVersion, pack.Version)
	}
	return len(pack.Pages), nil
}
