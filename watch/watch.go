package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Editors often write a file in several steps; wait this long after the
// last event before reading it.
const settleDelay = 100 * time.Millisecond

// Program watches the file at path and sends its contents after every
// change until ctx is done. The directory is watched so that editors that
// replace the file by renaming are seen too.
func Program(ctx context.Context, path string, log *slog.Logger) (<-chan []byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer watcher.Close()

		var settle <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					settle = time.After(settleDelay)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watcher error", "err", err)
			case <-settle:
				settle = nil
				b, err := os.ReadFile(abs)
				if err != nil {
					log.Warn("read changed program", "path", abs, "err", err)
					continue
				}
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
