package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"lmc/internal/tabs"
)

// DefaultDebounce is the quiet period before a file change is folded back
// into its tab.
const DefaultDebounce = 500 * time.Millisecond

// Watcher folds edits made to mirrored files back into their bound tabs, so
// dirty detection reflects on-disk changes made outside the composer.
// Only Content is touched; the original-content and portal-content anchors
// stay put, which is exactly what makes the tab read as dirty.
type Watcher struct {
	tabs     *tabs.Collection
	mirror   *Mirror
	debounce time.Duration
}

// NewWatcher creates a watcher over the collection's file-bound tabs.
func NewWatcher(collection *tabs.Collection, m *Mirror, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{tabs: collection, mirror: m, debounce: debounce}
}

// Run watches every file-bound tab's mirrored file until ctx is done.
// onChange, when non-nil, is invoked after a change has been applied.
func (w *Watcher) Run(ctx context.Context, onChange func(tabID string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	// Watch directories rather than files: editors that replace-on-save
	// would otherwise drop the watch on the first write.
	byPath := make(map[string]string) // file path -> tab id
	dirs := make(map[string]struct{})
	for _, tab := range w.tabs.List() {
		if !tab.FileBound() {
			continue
		}
		byPath[tab.File.Path] = tab.ID
		dirs[filepath.Dir(tab.File.Path)] = struct{}{}
	}
	if len(byPath) == 0 {
		return fmt.Errorf("no file-bound tabs to watch")
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	debouncers := make(map[string]*debouncer)
	defer func() {
		for _, d := range debouncers {
			d.cancel()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			tabID, watched := byPath[event.Name]
			if !watched || !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			d, ok := debouncers[event.Name]
			if !ok {
				d = newDebouncer(w.debounce)
				debouncers[event.Name] = d
			}
			path := event.Name
			d.trigger(func() {
				w.apply(path, tabID, onChange)
			})
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher error: %w", err)
		}
	}
}

func (w *Watcher) apply(path, tabID string, onChange func(string)) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	content := string(data)
	changed := false
	w.tabs.Apply([]string{tabID}, func(t *tabs.Tab) {
		if t.Content != content {
			t.Content = content
			changed = true
		}
	})
	if changed && onChange != nil {
		onChange(tabID)
	}
}
