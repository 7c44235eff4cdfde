// Package validation gates the optimization pipeline: structural checks on
// inputs, constraint-set logic, pre-solve feasibility and post-solve
// correctness. Fatal findings are returned as *Error; data-quality findings
// are collected as Warnings and never block progression.
package validation

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Kind classifies a fatal validation failure.
type Kind string

const (
	KindStructural  Kind = "structural"
	KindConstraint  Kind = "constraint"
	KindFeasibility Kind = "feasibility"
	KindSolver      Kind = "solver"
	KindInvariant   Kind = "invariant"
)

// Error is a fatal validation failure. ConstraintSet is empty for checks
// that are not tied to one set.
type Error struct {
	Kind          Kind
	ConstraintSet string
	Msg           string
}

func (e *Error) Error() string {
	if e.ConstraintSet == "" {
		return fmt.Sprintf("validation: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("validation: %s [%s]: %s", e.Kind, e.ConstraintSet, e.Msg)
}

func newError(kind Kind, cs, format string, args ...any) *Error {
	return &Error{Kind: kind, ConstraintSet: cs, Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is, or wraps, a validation failure as
// opposed to an unexpected internal error.
func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// KindOf returns the kind of the validation failure wrapped by err.
func KindOf(err error) (Kind, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return "", false
}

// Warning codes.
const (
	WarnTightMargin        = "tight_margin"
	WarnServiceShortfall   = "service_shortfall"
	WarnMissingCoordinates = "missing_coordinates"
	WarnGeocodingRate      = "geocoding_rate"
	WarnOutOfBounds        = "out_of_bounds"
	WarnDuplicateKeys      = "duplicate_keys_aggregated"
	WarnZeroWeight         = "zero_weight"
	WarnInvalidKey         = "invalid_key"
	WarnTotalMismatch      = "total_mismatch"
	WarnMapMismatch        = "map_mismatch"
)

// Warning is a non-fatal data-quality finding.
type Warning struct {
	Code          string `json:"code"`
	ConstraintSet string `json:"constraint_set,omitempty"`
	Msg           string `json:"msg"`
}

func (w Warning) String() string {
	if w.ConstraintSet == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Msg)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.ConstraintSet, w.Msg)
}

func newWarning(code, cs, format string, args ...any) Warning {
	return Warning{Code: code, ConstraintSet: cs, Msg: fmt.Sprintf(format, args...)}
}

// Warnings collects warnings from concurrent constraint-set evaluations and
// logs each one as it arrives. The zero value is ready to use.
type Warnings struct {
	mu    sync.Mutex
	items []Warning
}

// Add records and logs warnings.
func (w *Warnings) Add(ws ...Warning) {
	for _, item := range ws {
		zap.L().Warn("validation: "+item.Msg,
			zap.String("code", item.Code),
			zap.String("constraint_set", item.ConstraintSet),
		)
	}
	w.mu.Lock()
	w.items = append(w.items, ws...)
	w.mu.Unlock()
}

// List returns a copy of the recorded warnings in arrival order.
func (w *Warnings) List() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Warning(nil), w.items...)
}

// Len returns the number of recorded warnings.
func (w *Warnings) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Strings renders warnings for persistence.
func Strings(ws []Warning) []string {
	if len(ws) == 0 {
		return nil
	}
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}
