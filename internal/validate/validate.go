// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package validate accumulates field-level configuration problems so a
// single load reports all of them at once.
package validate

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FieldError describes one rejected setting.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Reason, e.Value)
}

// Report is the error returned by Validator.Err. It unwraps to the
// individual field errors.
type Report []FieldError

func (r Report) Error() string {
	parts := make([]string, len(r))
	for i, fe := range r {
		parts[i] = fe.Error()
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Unwrap exposes each FieldError to errors.Is and errors.As.
func (r Report) Unwrap() []error {
	out := make([]error, len(r))
	for i, fe := range r {
		out[i] = fe
	}
	return out
}

// Fields lists the rejected field names in the order they were reported.
func (r Report) Fields() []string {
	out := make([]string, len(r))
	for i, fe := range r {
		out[i] = fe.Field
	}
	return out
}

// Validator collects FieldErrors. The zero value is ready to use.
type Validator struct {
	report Report
}

// New returns an empty Validator.
func New() *Validator { return &Validator{} }

// Reject records a failure for field.
func (v *Validator) Reject(field string, value any, format string, args ...any) {
	v.report = append(v.report, FieldError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)})
}

func (v *Validator) expect(ok bool, field string, value any, format string, args ...any) {
	if !ok {
		v.Reject(field, value, format, args...)
	}
}

// OK reports whether nothing has been rejected so far.
func (v *Validator) OK() bool { return len(v.report) == 0 }

// Err returns the accumulated Report, or nil.
func (v *Validator) Err() error {
	if v.OK() {
		return nil
	}
	return slices.Clone(v.report)
}

// Range requires lo <= value <= hi.
func (v *Validator) Range(field string, value, lo, hi int) {
	v.expect(value >= lo && value <= hi, field, value, "must be within [%d, %d]", lo, hi)
}

// FloatRange requires lo <= value <= hi.
func (v *Validator) FloatRange(field string, value, lo, hi float64) {
	v.expect(value >= lo && value <= hi, field, value, "must be within [%g, %g]", lo, hi)
}

// Positive requires value > 0.
func (v *Validator) Positive(field string, value int) {
	v.expect(value > 0, field, value, "must be positive")
}

// PositiveDuration requires d > 0.
func (v *Validator) PositiveDuration(field string, d time.Duration) {
	v.expect(d > 0, field, d, "must be a positive duration")
}

// NonNegativeDuration requires d >= 0.
func (v *Validator) NonNegativeDuration(field string, d time.Duration) {
	v.expect(d >= 0, field, d, "must not be negative")
}

// NotEmpty rejects blank strings.
func (v *Validator) NotEmpty(field, value string) {
	v.expect(strings.TrimSpace(value) != "", field, value, "is required")
}

// OneOf requires value to be one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) {
	v.expect(slices.Contains(allowed, value), field, value, "must be one of %s", strings.Join(allowed, ", "))
}

// LogLevel accepts anything zerolog can parse. Empty selects the default.
func (v *Validator) LogLevel(field, value string) {
	if value == "" {
		return
	}
	_, err := zerolog.ParseLevel(strings.ToLower(value))
	v.expect(err == nil, field, value, "is not a log level")
}

// ListenAddr requires host:port with a numeric port. Port 0 is allowed.
func (v *Validator) ListenAddr(field, addr string) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.Reject(field, addr, "must be host:port")
		return
	}
	n, err := strconv.Atoi(port)
	v.expect(err == nil && n >= 0 && n <= 65535, field, addr, "port must be numeric and at most 65535")
}

// Path rejects relative paths that climb out of the working tree.
func (v *Validator) Path(field, path string) {
	if path == "" {
		return
	}
	clean := filepath.Clean(path)
	escapes := clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))
	v.expect(!escapes, field, path, "must not traverse above its base directory")
}

// AsReport extracts a Report from err.
func AsReport(err error) (Report, bool) {
	var r Report
	ok := errors.As(err, &r)
	return r, ok
}
