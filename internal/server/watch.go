package server

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cognicore/lica/pkg/lica"
)

// BuildFunc builds a fresh classifier, typically config.Loader.Load.
type BuildFunc func(ctx context.Context) (*lica.Classifier, error)

// settle is how long a burst of file events must be quiet before a rebuild
const settle = 100 * time.Millisecond

// Reload builds a new classifier and swaps it in. On failure the active
// classifier is kept.
func (s *Server) Reload(ctx context.Context, build BuildFunc) error {
	c, err := build(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reload failed, keeping previous classifier")
		return err
	}

	s.Swap(c)
	st := c.Index().Stats()
	s.log.Info().
		Int("keywords", st.Keywords).
		Int("domain_rules", st.DomainRules).
		Int("host_rules", st.HostRules).
		Int("path_rules", st.PathRules).
		Msg("classifier reloaded")
	return nil
}

// Watch rebuilds the classifier whenever a .json file in dir is written or
// created. It blocks until ctx is cancelled.
func (s *Server) Watch(ctx context.Context, dir string, build BuildFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.log.Info().Str("dir", dir).Msg("watching datasets")

	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			s.log.Debug().Str("file", event.Name).Msg("dataset changed")
			timer.Reset(settle)

		case <-timer.C:
			_ = s.Reload(ctx, build)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("file watcher error")
		}
	}
}
