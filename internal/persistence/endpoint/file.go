// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// FileStore writes the endpoint as a YAML document. Writes go through a
// pending file that is fsynced and renamed over the target.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(_ context.Context) (Endpoint, bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Endpoint{}, false, nil
	}
	if err != nil {
		return Endpoint{}, false, fmt.Errorf("read endpoint file: %w", err)
	}
	if len(data) == 0 {
		return Endpoint{}, false, nil
	}

	var ep Endpoint
	if err := yaml.Unmarshal(data, &ep); err != nil {
		return Endpoint{}, false, fmt.Errorf("decode endpoint file: %w", err)
	}
	return ep, true, nil
}

func (f *FileStore) Save(_ context.Context, ep Endpoint) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create endpoint dir: %w", err)
	}

	data, err := yaml.Marshal(ep)
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(f.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending endpoint file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write endpoint file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit endpoint file: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }
