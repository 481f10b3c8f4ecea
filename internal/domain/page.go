package domain

import "time"

type PageKind string

const (
	PageScan     PageKind = "scan"
	PageImported PageKind = "imported"
	PageRendered PageKind = "rendered"
)

// Resource is a sub-resource a page refers to (font, image). Shared marks
// resources owned by the page's container; a shallow page copy aliases their
// data, so such pages must be copied by full re-encoding.
type Resource struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"` // "font" | "image"
	Data   []byte `json:"data"`
	Shared bool   `json:"shared"`
}

// Page is one ordered content unit of a document. A page is owned by exactly
// one store at a time; it is never implicitly shared between two stores.
type Page struct {
	ID        string     `json:"id"`
	Kind      PageKind   `json:"kind"`
	Content   []byte     `json:"content"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Resources []Resource `json:"resources,omitempty"`
	Degraded  bool       `json:"degraded"` // copy still aliases the source
	CreatedAt time.Time  `json:"createdAt"`
}

// HasSharedResources reports whether any resource is container-owned.
func (p *Page) HasSharedResources() bool {
	for _, r := range p.Resources {
		if r.Shared {
			return true
		}
	}
	return false
}

// Clone is the native copy tier: content bytes are duplicated, but data of
// shared resources stays aliased to the container's buffers. Callers must
// not use it on pages where HasSharedResources is true.
func (p *Page) Clone() *Page {
	c := *p
	c.Content = append([]byte(nil), p.Content...)
	c.Resources = make([]Resource, len(p.Resources))
	for i, r := range p.Resources {
		c.Resources[i] = r
		if !r.Shared {
			c.Resources[i].Data = append([]byte(nil), r.Data...)
		}
	}
	return &c
}

// ContentEquals reports whether two pages carry the same content and
// resource data, ignoring identity fields.
func (p *Page) ContentEquals(o *Page) bool {
	if p.Kind != o.Kind || string(p.Content) != string(o.Content) || len(p.Resources) != len(o.Resources) {
		return false
	}
	for i := range p.Resources {
		if p.Resources[i].Kind != o.Resources[i].Kind || string(p.Resources[i].Data) != string(o.Resources[i].Data) {
			return false
		}
	}
	return true
}
