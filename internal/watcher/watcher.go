// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package watcher calls a function when a file changes on disk.
//
package watcher

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// DefaultDebounce is the default quiet period after the last change before
// the change function is called.
//
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a single file.
//
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	log      *log.Logger
	fw       *fsnotify.Watcher
}

// New starts watching the file at path. onChange is called from its own
// goroutine after the file has been written or replaced, once changes have
// settled. The directory holding the file is watched so that files replaced
// by editors are still tracked.
//
// Events are only delivered while Watch is running.
//
func New(path string, onChange func(), l *log.Logger) (*Watcher, error) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "watcher")
	}
	if err = fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "watch %s", abs)
	}
	return &Watcher{path: abs, onChange: onChange, debounce: DefaultDebounce, log: l, fw: fw}, nil
}

// SetDebounce sets the debounce duration.
//
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Watch processes file events until ctx is done. The watcher is closed when
// Watch returns.
//
func (w *Watcher) Watch(ctx context.Context) error {
	defer w.fw.Close()
	w.log.Printf("watching %s for changes", w.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case e, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != w.path || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				w.log.Printf("%s changed", w.path)
				w.onChange()
			})
			mu.Unlock()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Printf("watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
