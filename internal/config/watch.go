package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 250 * time.Millisecond

// Watch calls onChange with the freshly resolved config whenever path is
// written. Editors often save through a rename, so the parent directory is
// watched rather than the file. Environment overrides are re-applied from
// getenv on every reload. Invalid configs are logged and skipped.
func Watch(ctx context.Context, path string, getenv func(string) string, onChange func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		target := filepath.Clean(path)

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
				} else {
					timer.Reset(watchDebounce)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("[config] watch error: %v", err)
			case <-fire:
				fire = nil
				norm, res, err := Resolve(path, getenv)
				if err != nil {
					log.Printf("[config] reload failed path=%s err=%v", path, err)
					continue
				}
				if !res.OK() {
					log.Printf("[config] reload rejected path=%s errors=%v", path, res.Errors)
					continue
				}
				onChange(norm)
			}
		}
	}()
	return nil
}
