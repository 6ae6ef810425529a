package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/acrine/authstack"
)

// A Watcher keeps a policy registry in sync with a policy file on disk.
// Reload failures keep the previous policies in place and are only logged,
// so a broken edit never takes a running service down.
type Watcher struct {
	path     string
	registry *authstack.PolicyRegistry
	log      *slog.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher watches the directory containing path; editors usually replace
// files via rename, which a file-level watch would lose track of.
func NewWatcher(path string, registry *authstack.PolicyRegistry, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{path: path, registry: registry, log: log, fsw: fsw}, nil
}

// Run applies the file once and then reloads on every change until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := Apply(w.path, w.registry); err != nil {
		return err
	}
	w.log.Info("policy file loaded", slog.String("path", w.path))

	target, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			changed, err := filepath.Abs(event.Name)
			if err != nil || changed != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := Apply(w.path, w.registry); err != nil {
				w.log.Error("policy reload failed, keeping previous policies",
					slog.String("path", w.path), slog.Any("error", err))
				continue
			}
			w.log.Info("policy file reloaded", slog.String("path", w.path))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("policy watcher error", slog.Any("error", err))
		}
	}
}
