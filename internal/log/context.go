// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

type ctxField struct{ key, value string }

// ContextWith returns a child of ctx that tags loggers obtained through
// WithContext with key=value. Later values for the same key win.
func ContextWith(ctx context.Context, key, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	prev := fieldsFrom(ctx)
	next := make([]ctxField, 0, len(prev)+1)
	for _, f := range prev {
		if f.key != key {
			next = append(next, f)
		}
	}
	return context.WithValue(ctx, ctxKey{}, append(next, ctxField{key, value}))
}

func fieldsFrom(ctx context.Context) []ctxField {
	if ctx == nil {
		return nil
	}
	fs, _ := ctx.Value(ctxKey{}).([]ctxField)
	return fs
}

// ValueFromContext returns the value stored under key, or "".
func ValueFromContext(ctx context.Context, key string) string {
	for _, f := range fieldsFrom(ctx) {
		if f.key == key {
			return f.value
		}
	}
	return ""
}

// WithContext adds the fields carried by ctx to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	fs := fieldsFrom(ctx)
	if len(fs) == 0 {
		return logger
	}
	c := logger.With()
	for _, f := range fs {
		c = c.Str(f.key, f.value)
	}
	return c.Logger()
}

// WithComponentFromContext is WithComponent plus the fields carried by ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
