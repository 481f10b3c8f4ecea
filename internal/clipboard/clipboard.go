// Package clipboard owns the single active transfer payload and mirrors it
// to the OS clipboard under a private, versioned format identifier, so it
// coexists with plain-text and image clipboard users.
package clipboard

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"paperstack/internal/codec"
	"paperstack/internal/domain"
)

// FormatID is the app-owned type identifier under which payloads are
// mirrored to the system clipboard. Everything else on the clipboard is
// foreign and left alone.
const FormatID = "application/x-paperstack-pages;v=1"

// SystemClipboard is the platform clipboard port. The Wails runtime adapter
// lives in the app layer; tests use MockSystemClipboard.
type SystemClipboard interface {
	SetText(text string) error
	GetText() (string, error)
}

// EventEmitter notifies the UI layer. Satisfied by the app's emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Manager holds the one active payload for the process. All access happens
// on the context that owns document mutation, so no locking is needed; the
// payload is visible to every open document.
type Manager struct {
	system  SystemClipboard
	emitter EventEmitter

	payload  *domain.TransferPayload
	consumed bool
}

// NewManager creates a Manager over the given system clipboard.
func NewManager(system SystemClipboard, emitter EventEmitter) *Manager {
	return &Manager{system: system, emitter: emitter}
}

// SetPayload replaces any existing payload, in memory and on the system
// clipboard. Overwriting an un-pasted cut payload does not restore its
// already-removed source pages; the UI is told so it can offer an undo hint.
func (m *Manager) SetPayload(ctx context.Context, p *domain.TransferPayload) error {
	if err := m.validate(p); err != nil {
		return domain.NewError(domain.CodeClipboardPayloadInvalid, err)
	}
	if prev := m.payload; prev != nil && prev.Op == domain.OpCut && !m.consumed {
		m.emitter.Emit(ctx, "clipboard:cut-discarded", map[string]string{
			"payloadId":  prev.ID,
			"documentId": prev.SourceDocumentID,
		})
	}
	m.payload = p
	m.consumed = false

	// Degraded payloads alias in-process memory and are not self-contained;
	// they never leave the process.
	if !p.Degraded {
		if err := m.mirror(p); err != nil {
			log.Printf("clipboard: mirror to system clipboard failed: %v", err)
		}
	}
	m.emitter.Emit(ctx, "clipboard:changed", map[string]bool{"hasPayload": true})
	return nil
}

// Payload returns the active payload, or nil when there is nothing valid to
// paste. Foreign or malformed system clipboard content reads back as empty,
// never as an error.
func (m *Manager) Payload(ctx context.Context) *domain.TransferPayload {
	if m.payload != nil {
		return m.payload
	}
	// Another app instance may have placed a payload under our format.
	text, err := m.system.GetText()
	if err != nil || !strings.HasPrefix(text, FormatID+":") {
		return nil
	}
	p, err := decodePayload(text)
	if err != nil || m.validate(p) != nil {
		return nil
	}
	m.payload = p
	m.consumed = false
	m.emitter.Emit(ctx, "clipboard:changed", map[string]bool{"hasPayload": true})
	return p
}

// Clear removes the payload from memory and, when the system clipboard
// still holds our format, from the system clipboard. Unrelated clipboard
// content (text, images) is left untouched.
func (m *Manager) Clear(ctx context.Context) {
	m.payload = nil
	m.consumed = false
	if text, err := m.system.GetText(); err == nil && strings.HasPrefix(text, FormatID+":") {
		if err := m.system.SetText(""); err != nil {
			log.Printf("clipboard: clear system clipboard failed: %v", err)
		}
	}
	m.emitter.Emit(ctx, "clipboard:changed", map[string]bool{"hasPayload": false})
}

// MarkConsumed records that the held payload was consumed by a paste, so a
// later overwrite does not report a discarded cut.
func (m *Manager) MarkConsumed() {
	m.consumed = true
}

// HasPayload is the cheap check for UI enablement.
func (m *Manager) HasPayload() bool {
	return m.payload != nil
}

func (m *Manager) validate(p *domain.TransferPayload) error {
	if err := p.Validate(); err != nil {
		return err
	}
	n, err := codec.CountPages(p.Pages)
	if err != nil {
		return err
	}
	if n != p.PageCount {
		return fmt.Errorf("payload declares %d pages but pack holds %d", p.PageCount, n)
	}
	return nil
}

func (m *Manager) mirror(p *domain.TransferPayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return m.system.SetText(FormatID + ":" + base64.StdEncoding.EncodeToString(data))
}

func decodePayload(text string) (*domain.TransferPayload, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(text, FormatID+":"))
	if err != nil {
		return nil, err
	}
	var p domain.TransferPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// MockSystemClipboard is a test-friendly SystemClipboard holding plain text
// in memory.
type MockSystemClipboard struct {
	Text   string
	SetErr error
	GetErr error
}

func (m *MockSystemClipboard) SetText(text string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Text = text
	return nil
}

func (m *MockSystemClipboard) GetText() (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	return m.Text, nil
}
