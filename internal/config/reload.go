// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	rxlog "github.com/ManuGH/streamrx/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

// debounceDuration coalesces the burst of events an editor save produces.
const debounceDuration = 500 * time.Millisecond

// ConfigHolder publishes the current AppConfig and swaps it on reload.
type ConfigHolder struct {
	current atomic.Pointer[AppConfig]
	loader  *Loader
	logger  zerolog.Logger

	subMu sync.Mutex
	subs  []chan AppConfig

	watchWG sync.WaitGroup
}

func NewConfigHolder(initial AppConfig, loader *Loader) *ConfigHolder {
	h := &ConfigHolder{loader: loader, logger: rxlog.WithComponent("config")}
	h.current.Store(&initial)
	return h
}

// Get returns a copy of the current configuration.
func (h *ConfigHolder) Get() AppConfig {
	return *h.current.Load()
}

// Subscribe returns a channel that always holds the most recent successfully
// reloaded configuration. Slow readers skip intermediate versions.
func (h *ConfigHolder) Subscribe() <-chan AppConfig {
	ch := make(chan AppConfig, 1)
	h.subMu.Lock()
	h.subs = append(h.subs, ch)
	h.subMu.Unlock()
	return ch
}

func (h *ConfigHolder) publish(next AppConfig) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}

// Reload loads and validates the file again. The previous configuration stays
// in place when that fails.
func (h *ConfigHolder) Reload(_ context.Context) error {
	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(rxlog.FieldEvent, "config.reload_failed").Msg("configuration reload rejected")
		return fmt.Errorf("load config: %w", err)
	}

	old := h.current.Swap(&next)
	if diff := cmp.Diff(*old, next); diff != "" {
		h.logger.Info().Str(rxlog.FieldEvent, "config.changed").Str("diff", diff).Msg("configuration changed")
	} else {
		h.logger.Info().Str(rxlog.FieldEvent, "config.unchanged").Msg("configuration reloaded without changes")
	}
	h.publish(next)
	return nil
}

// StartWatcher reloads whenever the config file changes, until ctx ends.
// Without a config file it does nothing.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().Str(rxlog.FieldEvent, "config.watcher_disabled").Msg("no config file, watcher disabled")
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace the file on save; watching the directory survives that.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.logger.Info().Str(rxlog.FieldEvent, "config.watcher_started").Str("path", path).Msg("watching config file")

	h.watchWG.Add(1)
	go func() {
		defer h.watchWG.Done()
		defer func() { _ = w.Close() }()
		h.watch(ctx, w, filepath.Clean(path))
	}()
	return nil
}

// Wait blocks until the watcher goroutine has exited.
func (h *ConfigHolder) Wait() {
	h.watchWG.Wait()
}

func relevant(ev fsnotify.Event, path string) bool {
	if filepath.Clean(ev.Name) != path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (h *ConfigHolder) watch(ctx context.Context, w *fsnotify.Watcher, path string) {
	debounce := time.NewTimer(debounceDuration)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if relevant(ev, path) {
				debounce.Reset(debounceDuration)
			}
		case <-debounce.C:
			_ = h.Reload(ctx)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Str(rxlog.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}
