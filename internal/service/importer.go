package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"paperstack/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Inbox Importer — files dropped into the inbox become documents
// ─────────────────────────────────────────────────────────────

// rescanSchedule is the cron fallback for events the watcher missed (e.g.
// files already present before startup, network mounts).
const rescanSchedule = "@every 5m"

// InboxImporter watches an inbox directory and imports each dropped file as
// a new single-page document, then removes the file.
type InboxImporter struct {
	library  *LibraryService
	inboxDir string
	emitter  EventEmitter

	watcher *fsnotify.Watcher
	sched   *cron.Cron
}

func NewInboxImporter(library *LibraryService, inboxDir string, emitter EventEmitter) *InboxImporter {
	return &InboxImporter{library: library, inboxDir: inboxDir, emitter: emitter}
}

// Start performs an initial sweep, then watches the inbox and rescans on a
// schedule.
func (im *InboxImporter) Start(ctx context.Context) error {
	if err := os.MkdirAll(im.inboxDir, 0755); err != nil {
		return fmt.Errorf("create inbox dir: %w", err)
	}
	if n, err := im.ScanOnce(ctx); err != nil {
		log.Printf("inbox: initial scan: %v", err)
	} else if n > 0 {
		log.Printf("inbox: imported %d file(s) on startup", n)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create inbox watcher: %w", err)
	}
	if err := watcher.Add(im.inboxDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch inbox dir: %w", err)
	}
	im.watcher = watcher
	go im.watchLoop(ctx)

	c := cron.New()
	if _, err := c.AddFunc(rescanSchedule, func() {
		if _, err := im.ScanOnce(ctx); err != nil {
			log.Printf("inbox: scheduled scan: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule inbox rescan: %w", err)
	}
	c.Start()
	im.sched = c
	return nil
}

// Stop tears down the watcher and the schedule.
func (im *InboxImporter) Stop() {
	if im.watcher != nil {
		im.watcher.Close()
	}
	if im.sched != nil {
		im.sched.Stop()
	}
}

func (im *InboxImporter) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-im.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			if _, err := im.ImportFile(ctx, event.Name); err != nil {
				log.Printf("inbox: import %s: %v", name, err)
			}
		case err, ok := <-im.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("inbox watcher: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

// ScanOnce imports every regular file currently in the inbox.
func (im *InboxImporter) ScanOnce(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(im.inboxDir)
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, err := im.ImportFile(ctx, filepath.Join(im.inboxDir, e.Name())); err != nil {
			log.Printf("inbox: import %s: %v", e.Name(), err)
			continue
		}
		imported++
	}
	return imported, nil
}

// ImportFile turns one file into a new document with a single imported page
// and removes the file on success.
func (im *InboxImporter) ImportFile(ctx context.Context, path string) (*domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	d, err := im.library.CreateDocument(title)
	if err != nil {
		return nil, err
	}
	if _, err := im.library.AppendScannedPage(ctx, d.ID, domain.PageImported, content, 0, 0); err != nil {
		_ = im.library.DeleteDocument(d.ID)
		return nil, err
	}

	if err := os.Remove(path); err != nil {
		log.Printf("inbox: remove %s after import: %v", path, err)
	}
	im.emitter.Emit(ctx, "library:updated", map[string]string{"documentId": d.ID})
	return d, nil
}
