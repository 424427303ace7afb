// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package endpoint

import (
	"context"

	"github.com/ManuGH/streamrx/internal/metrics"
)

type instrumented struct {
	backend string
	next    Store
}

func instrument(backend string, s Store) Store {
	return &instrumented{backend: backend, next: s}
}

func (i *instrumented) Load(ctx context.Context) (Endpoint, bool, error) {
	ep, ok, err := i.next.Load(ctx)
	metrics.IncEndpointStoreOp(i.backend, "load", err)
	return ep, ok, err
}

func (i *instrumented) Save(ctx context.Context, ep Endpoint) error {
	if !ep.Valid() {
		metrics.IncEndpointStoreOp(i.backend, "save", ErrInvalidEndpoint)
		return ErrInvalidEndpoint
	}
	err := i.next.Save(ctx, ep)
	metrics.IncEndpointStoreOp(i.backend, "save", err)
	return err
}

func (i *instrumented) Close() error { return i.next.Close() }

// Verify delegates to backends that can check themselves; others report healthy.
func (i *instrumented) Verify(ctx context.Context) error {
	if v, ok := i.next.(Verifier); ok {
		return v.Verify(ctx)
	}
	return nil
}
