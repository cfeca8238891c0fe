package hdmap

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/openav/naviplan/logging"
	"github.com/openav/naviplan/utils"
)

// settleTime is how long the map file must stay quiet before it is reloaded.
const settleTime = 100 * time.Millisecond

// A Watcher reloads a Map whenever its backing file is written. Bursts of writes produce a single
// reload once the file settles. A reload that fails to parse or validate is logged and the map
// keeps its previous lanes.
type Watcher struct {
	path    string
	m       *Map
	watcher *fsnotify.Watcher
	workers utils.StoppableWorkers
	logger  logging.Logger
	settle  func(func())
	pending chan struct{}
	// reloaded receives one value per reload attempt; nil when nobody listens.
	reloaded chan error
}

// NewWatcher starts watching path and applying its contents to m.
func NewWatcher(path string, m *Map, logger logging.Logger) (*Watcher, error) {
	return newWatcher(path, m, logger, nil)
}

func newWatcher(path string, m *Map, logger logging.Logger, reloaded chan error) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating map watcher")
	}
	guard := utils.NewGuard(func() { goutils.UncheckedError(fsWatcher.Close()) })
	defer guard.OnFail()

	// Watch the directory so editors that replace the file by rename are still observed.
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		return nil, errors.Wrapf(err, "watching %q", path)
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		m:        m,
		watcher:  fsWatcher,
		logger:   logger,
		settle:   debounce.New(settleTime),
		pending:  make(chan struct{}, 1),
		reloaded: reloaded,
	}
	w.workers = utils.NewStoppableWorkers(w.run)
	guard.Success()
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("map watcher error", "error", err)
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.settle(w.markPending)
		case <-w.pending:
			err := w.reload()
			if err != nil {
				w.logger.Errorw("failed to reload lane map, keeping previous lanes", "path", w.path, "error", err)
			} else {
				w.logger.Infow("reloaded lane map", "path", w.path, "lanes", len(w.m.LaneIDs()))
			}
			if w.reloaded != nil {
				select {
				case w.reloaded <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) markPending() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

func (w *Watcher) reload() error {
	lanes, err := ReadLanes(w.path)
	if err != nil {
		return err
	}
	return w.m.Replace(lanes)
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.workers.Stop()
	return w.watcher.Close()
}
