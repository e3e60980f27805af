// watch.go — fsnotify-driven rebuilds for watch mode (spec §4.6).
// Debounces bursts of filesystem events the way editors and build
// tools emit them (a save often fires several events for one logical
// change). A rebuild is only reported on Changed; nothing here reloads
// the browser.
package bundle

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wrightplay/wrightplay/internal/jsbuild"
	"github.com/wrightplay/wrightplay/internal/obslog"
)

const debounce = 100 * time.Millisecond

var watchLog = obslog.New("bundle.watch")

// Watcher rebuilds via its build function whenever a watched path changes, and
// reports each distinct resulting output hash as a Changed event.
type Watcher struct {
	fsw     *fsnotify.Watcher
	build   func(ctx context.Context) ([]jsbuild.BuildOutput, error)
	cache   *Cache
	Changed chan struct{}
}

// NewWatcher creates a Watcher that calls build to produce fresh
// output and records it into cache on every triggered rebuild.
func NewWatcher(cache *Cache, build func(ctx context.Context) ([]jsbuild.BuildOutput, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{fsw: fsw, build: build, cache: cache, Changed: make(chan struct{}, 1)}, nil
}

// Add registers a path (file or directory) to watch for changes.
func (w *Watcher) Add(path string) error {
	return w.fsw.Add(path)
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run drains filesystem events until ctx is cancelled, debouncing
// bursts and triggering at most one rebuild per quiet period.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			timerC = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			watchLog.WithError(err).Warn("watch error")
		case <-timerC:
			timerC = nil
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context) {
	before := w.cache.Hashes()
	w.cache.BeginBuild()
	outputs, err := w.build(ctx)
	w.cache.EndBuild(outputs)
	if err != nil {
		watchLog.WithError(err).Warn("rebuild failed, serving prior build")
		return
	}

	changed := len(outputs) != len(before)
	for _, o := range outputs {
		if before[o.Path] != o.ContentHash {
			changed = true
		}
	}
	if changed {
		select {
		case w.Changed <- struct{}{}:
		default:
		}
	}
}
