// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package endpoint persists the last streaming server the receiver talked to,
// so a resumed session can reconnect without discovery.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Backend names accepted by NewStore.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// DefaultRedisKey is the hash key used when none is configured.
const DefaultRedisKey = "streamrx:endpoint"

// Endpoint is the address of the last streaming server.
type Endpoint struct {
	Address string    `yaml:"address" json:"address"`
	Port    int       `yaml:"port" json:"port"`
	SavedAt time.Time `yaml:"saved_at" json:"saved_at"`
}

// Valid reports whether the endpoint can be used to recover a connection.
func (e Endpoint) Valid() bool {
	return e.Address != "" && e.Port > 0 && e.Port <= 65535
}

// Store loads and saves the endpoint. Load returns (Endpoint{}, false, nil)
// when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (Endpoint, bool, error)
	Save(ctx context.Context, ep Endpoint) error
	Close() error
}

// Verifier is implemented by stores that can check their backend is usable.
type Verifier interface {
	Verify(ctx context.Context) error
}

// ErrInvalidEndpoint is returned by Save for endpoints that could never be recovered.
var ErrInvalidEndpoint = errors.New("endpoint: address and port required")

// Options selects and configures a backend.
type Options struct {
	Backend   string
	Path      string
	RedisAddr string
	RedisKey  string
}

// NewStore opens the backend named in opts. Durable backends without a path
// fall back to memory, matching an unconfigured receiver.
func NewStore(ctx context.Context, opts Options, logger zerolog.Logger) (Store, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendMemory
	}

	var (
		s   Store
		err error
	)
	switch backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendFile:
		if opts.Path == "" {
			return fallback(logger, backend), nil
		}
		s = NewFileStore(opts.Path)
	case BackendSQLite:
		if opts.Path == "" {
			return fallback(logger, backend), nil
		}
		s, err = NewSqliteStore(ctx, opts.Path)
	case BackendBadger:
		if opts.Path == "" {
			return fallback(logger, backend), nil
		}
		s, err = NewBadgerStore(opts.Path)
	case BackendRedis:
		key := opts.RedisKey
		if key == "" {
			key = DefaultRedisKey
		}
		s, err = NewRedisStore(ctx, opts.RedisAddr, key)
	default:
		return nil, fmt.Errorf("unknown endpoint store backend: %s (supported: memory, file, sqlite, badger, redis)", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s endpoint store: %w", backend, err)
	}

	logger.Info().
		Str("backend", backend).
		Str("path", opts.Path).
		Msg("endpoint store opened")
	return instrument(backend, s), nil
}

func fallback(logger zerolog.Logger, backend string) Store {
	logger.Warn().
		Str("backend", backend).
		Msg("endpoint store path not set, falling back to memory")
	return instrument(BackendMemory, NewMemoryStore())
}
