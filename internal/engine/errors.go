package engine

import (
	"errors"
	"fmt"
)

// ErrPersistence indicates a storage failure during the persist stage of
// a mutation. Nothing downstream runs and the error propagates to the
// caller.
var ErrPersistence = errors.New("persistence failure")

// Result reports the outcome of a mutation. Warnings carry downstream
// failures (aggregate recomputation, notification delivery) that did not
// roll back the persisted mutation.
type Result struct {
	Warnings []string
}

// PartialSuccess reports whether any auxiliary stage failed after the
// mutation was persisted.
func (r *Result) PartialSuccess() bool {
	return len(r.Warnings) > 0
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
