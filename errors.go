package scopecache

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors. These surface synchronously - they indicate
// programmer or deployment mistakes, not runtime cache unavailability.
var (
	// ErrDuplicateBackend is returned when a kind is registered twice.
	ErrDuplicateBackend = errors.New("scopecache: backend kind already registered")

	// ErrNoBackend is returned by Resolve when neither the requested kind
	// nor a default backend is available.
	ErrNoBackend = errors.New("scopecache: no backend available")

	// ErrUnknownBackend is returned when a named kind is not registered.
	ErrUnknownBackend = errors.New("scopecache: unknown backend kind")
)

// AggregateError collects per-backend failures from a registry fan-out
// (Close). The fan-out is best-effort: every backend is attempted and the
// failures are reported together.
type AggregateError struct {
	Op   string
	Errs []error
}

func (e *AggregateError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("scopecache: %s failed for %d backend(s): %s",
		e.Op, len(e.Errs), strings.Join(msgs, "; "))
}

func (e *AggregateError) Unwrap() []error { return e.Errs }
