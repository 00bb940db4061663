package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the re-read config whenever the file at path is written.
// Invalid configs are logged and skipped. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Error("failed to close config watcher", "err", err)
		}
	}()

	if err := watcher.Add(path); err != nil {
		return err
	}
	slog.Info("watching config file", "path", path)

	fileLoop(ctx, watcher, path, onChange)
	return nil
}

func fileLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, onChange func(Config)) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher failed", "err", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Write) {
				config, err := Load(path)
				if err != nil {
					slog.Error("failed to reload config", "path", path, "err", err)
					continue
				}
				onChange(config)
			}
		}
	}
}
