package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must be quiet before it is reloaded.
const DefaultDebounce = 500 * time.Millisecond

// Watch reloads path whenever it changes and passes the fresh File to
// onChange. The parent directory is watched so editors that replace the
// file by rename are seen too. Files that fail to load are logged and
// skipped. Watch returns once the watcher is running; it stops when ctx
// is cancelled.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(File)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("config watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	go func() {
		defer w.Close()

		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(debounce)
				timerC = timer.C

			case <-timerC:
				timerC = nil
				f, err := Load(abs)
				if err != nil {
					log.Printf("config reload: %v", err)
					continue
				}
				log.Printf("config reloaded: %s", abs)
				onChange(f)

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("config watcher error: %v", err)
			}
		}
	}()

	return nil
}
