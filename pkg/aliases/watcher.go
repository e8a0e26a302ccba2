package aliases

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch watches the resolver's backing file and triggers Reload on change,
// debouncing bursts of writes the way editors and config-management tools
// tend to produce (a temp-file-then-rename save fires multiple events for
// one logical edit). This is a blocking call; run it in a goroutine and
// cancel ctx to stop it.
func (r *Resolver) Watch(ctx context.Context, debounce time.Duration, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.path); err != nil {
		return err
	}

	var timer *time.Timer
	reload := func() {
		if err := r.Reload(); err != nil {
			log.Error("aliases: reload failed", "path", r.path, "error", err)
			return
		}
		log.Info("aliases: reloaded", "path", r.path)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("aliases: watcher error", "error", err)
		}
	}
}
