package service

import "sync"

// ─────────────────────────────────────────────────────────────
// Scan sessions — provisional page tracking
// ─────────────────────────────────────────────────────────────

// ScanSessions tracks pages appended by an in-progress scan. Until the
// session is committed those pages are provisional: they exist in the open
// document but are excluded from transfers.
type ScanSessions struct {
	mu     sync.Mutex
	active map[string]*scanSession // documentID → session
}

type scanSession struct {
	start int // position of the first provisional page
	count int
}

func NewScanSessions() *ScanSessions {
	return &ScanSessions{active: make(map[string]*scanSession)}
}

// Begin starts a session for a document whose store currently holds
// startAt pages; pages appended from here on are provisional.
func (s *ScanSessions) Begin(documentID string, startAt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[documentID] = &scanSession{start: startAt}
}

// PageAppended records one more provisional page. No-op without a session.
func (s *ScanSessions) PageAppended(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.active[documentID]; ok {
		sess.count++
	}
}

// Commit ends the session; its pages become durable and transferable.
func (s *ScanSessions) Commit(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, documentID)
}

// Range returns the provisional range for a document, if any.
func (s *ScanSessions) Range(documentID string) (start, count int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.active[documentID]
	if !ok || sess.count == 0 {
		return 0, 0, false
	}
	return sess.start, sess.count, true
}

// IsDraft reports whether position falls in the provisional range. This is
// the DraftRanges implementation consumed by the transfer service.
func (s *ScanSessions) IsDraft(documentID string, position int) bool {
	start, count, ok := s.Range(documentID)
	return ok && position >= start && position < start+count
}
