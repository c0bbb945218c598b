package security

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the policy whenever its file changes, until ctx is cancelled.
// The containing directory is watched so that editors which replace the file
// (write to a temp file, then rename) are picked up too.
func (p *Policy) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch policy directory %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if p.logger != nil {
					p.logger.WithField("path", path).Debug("Policy file changed, reloading")
				}
				if err := p.Reload(path); err != nil && p.logger != nil {
					p.logger.WithError(err).Warn("Failed to reload policy, keeping previous rules")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if p.logger != nil {
					p.logger.WithError(err).Warn("Policy watcher error")
				}
			}
		}
	}()
	return nil
}
