package config

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the burst of write events most editors emit
// during a single save, so each save triggers one reload.
const debounceDelay = 200 * time.Millisecond

// Watch monitors path for changes and calls onChange with the newly loaded
// Config after each save settles. It runs until ctx is cancelled.
//
// If a reload fails (e.g., invalid YAML), the error is logged and the
// previous config remains active — Watch does not call onChange. Each
// successful reload logs which top-level sections changed; currently only
// alerts.webhooks is consumed live, the rest takes effect on restart.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(path); err != nil {
		return err
	}

	// Baseline for the changed-sections diff. A nil baseline (racing edit
	// broke the file between the caller's Load and ours) reports "all".
	prev, err := Load(path)
	if err != nil {
		prev = nil
	}

	slog.Info("config: watching for changes", "path", path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			// Only write and create events matter. Atomic-save editors (vim,
			// VS Code) replace the inode via rename, so the path must be
			// re-added or the watch silently dies with the old inode.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			_ = fw.Add(path)
			pending = time.After(debounceDelay)

		case <-pending:
			pending = nil
			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed — keeping previous config",
					"path", path, "err", err)
				continue
			}

			slog.Info("config: reloaded", "path", path, "changed", changedSections(prev, cfg))
			prev = cfg
			onChange(cfg)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// changedSections names the top-level config sections that differ between
// two loads, for the reload log line.
func changedSections(prev, next *Config) []string {
	if prev == nil {
		return []string{"all"}
	}

	out := make([]string, 0, 7)
	if prev.Server != next.Server {
		out = append(out, "server")
	}
	if prev.Storage != next.Storage {
		out = append(out, "storage")
	}
	if prev.Redis != next.Redis {
		out = append(out, "redis")
	}
	if prev.Watcher != next.Watcher {
		out = append(out, "watcher")
	}
	if prev.Scoring != next.Scoring {
		out = append(out, "scoring")
	}
	if !reflect.DeepEqual(prev.Alerts, next.Alerts) {
		out = append(out, "alerts")
	}
	if prev.Stream != next.Stream {
		out = append(out, "stream")
	}
	if len(out) == 0 {
		out = append(out, "none")
	}
	return out
}
