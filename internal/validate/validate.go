// SPDX-License-Identifier: MIT

// Package validate collects field-level configuration problems and reports
// them as a single error.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Error is one rejected field.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError is returned by Validator.Err when at least one field was rejected.
type ValidationError struct {
	errors []Error
}

// Errors returns the rejected fields in the order they were checked.
func (e ValidationError) Errors() []Error {
	return e.errors
}

func (e ValidationError) Error() string {
	msgs := make([]string, 0, len(e.errors))
	for _, err := range e.errors {
		msgs = append(msgs, err.Error())
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validator accumulates problems across many checks.
type Validator struct {
	errors []Error
}

func New() *Validator {
	return &Validator{}
}

// AddError records a problem that no built-in check covers.
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

func (v *Validator) check(ok bool, field string, value any, format string, args ...any) bool {
	if !ok {
		v.AddError(field, fmt.Sprintf(format, args...), value)
	}
	return ok
}

// Errors returns the problems recorded so far.
func (v *Validator) Errors() []Error {
	return v.errors
}

// Err returns nil when every check passed.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

// URL requires an absolute URL whose scheme is in schemes.
func (v *Validator) URL(field, value string, schemes []string) {
	if !v.check(value != "", field, value, "must be set") {
		return
	}
	u, err := url.Parse(value)
	if !v.check(err == nil, field, value, "not a URL: %v", err) {
		return
	}
	if !v.check(u.Host != "", field, value, "%q has no host", value) {
		return
	}
	v.check(len(schemes) == 0 || slices.Contains(schemes, u.Scheme), field, value,
		"scheme %q not in %s", u.Scheme, strings.Join(schemes, "|"))
}

// ListenAddr requires host:port with a usable port; the host may be empty.
func (v *Validator) ListenAddr(field, addr string) {
	_, port, err := net.SplitHostPort(addr)
	if !v.check(err == nil, field, addr, "not a listen address: %v", err) {
		return
	}
	n, err := strconv.Atoi(port)
	v.check(err == nil && n >= 1 && n <= 65535, field, addr, "port %q outside 1-65535", port)
}

// Range requires minVal <= value <= maxVal.
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if minVal == maxVal {
		v.check(value == minVal, field, value, "must be %d, got %d", minVal, value)
		return
	}
	v.check(value >= minVal && value <= maxVal, field, value, "%d outside [%d, %d]", value, minVal, maxVal)
}

// FloatRange requires minVal <= value <= maxVal.
func (v *Validator) FloatRange(field string, value, minVal, maxVal float64) {
	v.check(value >= minVal && value <= maxVal, field, value, "%g outside [%g, %g]", value, minVal, maxVal)
}

// Directory requires path to name a directory. Unless mustExist is set a
// missing directory is created instead of reported.
func (v *Validator) Directory(field, path string, mustExist bool) {
	if !v.check(path != "", field, path, "must be set") {
		return
	}
	abs, err := filepath.Abs(path)
	if !v.check(err == nil, field, path, "unusable path: %v", err) {
		return
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil:
		v.check(info.IsDir(), field, path, "%s is not a directory", abs)
	case os.IsNotExist(err) && mustExist:
		v.AddError(field, abs+" does not exist", path)
	case os.IsNotExist(err):
		mkErr := os.MkdirAll(abs, 0o750)
		v.check(mkErr == nil, field, path, "create %s: %v", abs, mkErr)
	default:
		v.AddError(field, err.Error(), path)
	}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	v.check(strings.TrimSpace(value) != "", field, value, "must be set")
}

// OneOf requires value to be listed in allowed.
func (v *Validator) OneOf(field, value string, allowed []string) {
	v.check(slices.Contains(allowed, value), field, value, "%q not in %s", value, strings.Join(allowed, "|"))
}

// Positive requires value > 0.
func (v *Validator) Positive(field string, value int) {
	v.check(value > 0, field, value, "must be positive, got %d", value)
}

// MinDuration requires d >= minVal.
func (v *Validator) MinDuration(field string, d, minVal time.Duration) {
	v.check(d >= minVal, field, d, "%s is below the minimum %s", d, minVal)
}

// Custom records fn's error, if any, against field.
func (v *Validator) Custom(field string, value any, fn func(any) error) {
	if err := fn(value); err != nil {
		v.AddError(field, err.Error(), value)
	}
}
