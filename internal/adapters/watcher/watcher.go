// Package watcher implements file system watching for run --watch.
package watcher

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 100

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	logger    ports.Logger
	events    chan ports.WatchEvent

	mu sync.Mutex
	// files maps a watched directory to the file names of interest in it.
	// A directory watched as a whole maps to nil.
	files map[string]map[string]struct{}
}

// NewWatcher creates a new file system watcher.
func NewWatcher(logger ports.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrWatcherFailed.Error())
	}
	return &Watcher{
		fsWatcher: fsWatcher,
		logger:    logger,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
		files:     make(map[string]map[string]struct{}),
	}, nil
}

// Start begins watching paths and forwards their events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		if err := w.add(path); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrWatcherFailed.Error()), "path", path)
		}
	}

	go w.processEvents(ctx)
	return nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if info.IsDir() {
		w.files[abs] = nil
		return w.fsWatcher.Add(abs)
	}

	dir, name := filepath.Split(abs)
	dir = filepath.Clean(dir)
	names, watched := w.files[dir]
	switch {
	case watched && names == nil:
		return nil
	case !watched:
		names = make(map[string]struct{})
		w.files[dir] = names
	}
	names[name] = struct{}{}
	return w.fsWatcher.Add(dir)
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator of file system events.
// The sequence ends once the watcher has stopped.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			watchEvent, ok := convertEvent(event)
			if !ok || !w.interested(event.Name) {
				continue
			}

			select {
			case w.events <- watchEvent:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(fmt.Sprintf("watcher: file system error: %v", err))
		}
	}
}

// interested reports whether path is a watched file or lies in a directory watched as a whole.
func (w *Watcher) interested(path string) bool {
	dir, name := filepath.Split(filepath.Clean(path))

	w.mu.Lock()
	defer w.mu.Unlock()

	names, ok := w.files[filepath.Clean(dir)]
	if !ok {
		return false
	}
	if names == nil {
		return true
	}
	_, ok = names[name]
	return ok
}

func convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	var op ports.WatchOp

	switch {
	case event.Has(fsnotify.Write):
		op = ports.OpWrite
	case event.Has(fsnotify.Create):
		op = ports.OpCreate
	case event.Has(fsnotify.Remove):
		op = ports.OpRemove
	case event.Has(fsnotify.Rename):
		op = ports.OpRename
	default:
		return ports.WatchEvent{}, false
	}

	return ports.WatchEvent{Path: event.Name, Operation: op}, true
}
