package outline

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/gebo/internal/checksum"
)

// Watch starts an fsnotify watcher on the workspace root and processes
// file change events until ctx is cancelled. onEdit (if non-nil) is called
// after each externally-edited page has been reloaded; self-writes from
// flush are recognized by checksum and skipped.
func (w *Workspace) Watch(ctx context.Context, onEdit func(page string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				page, changed, reloadErr := w.reload(ev.Name)
				if reloadErr != nil {
					w.logger.Warn("watcher: reload failed",
						slog.String("path", ev.Name), slog.String("error", reloadErr.Error()))
					continue
				}
				if !changed {
					continue
				}
				w.logger.Debug("watcher: page edited", slog.String("page", page))
				if onEdit != nil {
					onEdit(page)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new path arrives
				// as a separate Create event.
				w.forget(ev.Name)
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reload re-parses the file unless its content matches the last self-write.
func (w *Workspace) reload(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}

	w.mu.Lock()
	self := w.selfSums[path] == checksum.Sum(data)
	w.mu.Unlock()
	if self {
		return "", false, nil
	}
	return w.load(path)
}
