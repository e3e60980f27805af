package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wrightplay/wrightplay/internal/runner"
)

const watchDebounce = 100 * time.Millisecond

// runWithWatch runs cfg once, then keeps watching the directories its
// test and setup files live in, rerunning on every debounced change
// (spec §4.7 step 7 "watch/headed mode: rerun on Changed"). Each
// rerun opens a fresh browser session rather than reusing the page in
// place; a later adapter-specific optimization could keep the page
// alive across reruns, but nothing in this protocol requires it.
func runWithWatch(ctx context.Context, cfg runner.Config) (int, error) {
	code, err := runner.Run(ctx, cfg)
	if err != nil {
		return code, err
	}
	// Coverage is collected on the first run only.
	cfg.Run.NoCov = true

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return code, err
	}
	defer watcher.Close()

	dirs := map[string]struct{}{}
	for _, t := range cfg.Tests {
		dirs[filepath.Dir(t)] = struct{}{}
	}
	if cfg.Run.Setup != "" {
		dirs[filepath.Dir(cfg.Run.Setup)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			rootLog.WithError(err).WithField("dir", dir).Warn("could not watch directory")
		}
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return code, nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return code, nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			timerC = timer.C
		case <-watcher.Errors:
			continue
		case <-timerC:
			timerC = nil
			rootLog.Info("change detected, rerunning")
			code, err = runner.Run(ctx, cfg)
			if err != nil {
				return code, err
			}
		}
	}
}
