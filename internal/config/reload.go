package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/storefront/internal/config/watcher"
)

// Reloader reloads the configuration when its file changes.
type Reloader struct {
	opts     LoadOptions
	w        *watcher.Watcher
	onChange func(*Config)
	onError  func(error)
}

// Watch starts watching opts.Path. Each change reloads every layer; a
// successful load is passed to onChange, a failed one to onError and the
// previous configuration stays in effect. onError may be nil.
func Watch(opts LoadOptions, onChange func(*Config), onError func(error)) (*Reloader, error) {
	if opts.Path == "" {
		return nil, errors.New("config watch: no file to watch")
	}
	if onError == nil {
		onError = func(error) {}
	}

	w, err := watcher.New(watcher.WithDebounce(100 * time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("config watch: %w", err)
	}
	if err := w.Watch(opts.Path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("config watch: %w", err)
	}

	r := &Reloader{opts: opts, w: w, onChange: onChange, onError: onError}
	w.OnChange(r.handle)
	w.OnError(onError)
	w.Start()
	return r, nil
}

func (r *Reloader) handle(ev watcher.Event) {
	if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
		r.onError(fmt.Errorf("%w: %s (%s)", ErrFileNotFound, ev.Path, ev.Op))
		return
	}
	cfg, err := Load(r.opts)
	if err != nil {
		r.onError(err)
		return
	}
	r.onChange(cfg)
}

// Close stops watching.
func (r *Reloader) Close() error {
	return r.w.Close()
}
