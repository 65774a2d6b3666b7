package complaint

import (
	"fmt"

	"github.com/linnemanlabs/go-core/xerrors"
)

// Error kinds surfaced to callers. Handlers map these to HTTP statuses;
// Forbidden and NotFound are deliberately distinct (the current design
// leaks existence across tenants, see DESIGN.md).
var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = xerrors.New("validation failed")

	// ErrNotFound marks an unknown complaint identifier.
	ErrNotFound = xerrors.New("complaint not found")

	// ErrForbidden marks a role or ownership mismatch. No side effects.
	ErrForbidden = xerrors.New("forbidden")

	// ErrConflict marks a compare-and-swap revision mismatch.
	ErrConflict = xerrors.New("revision conflict")

	// ErrUpstream marks a retryable store or AI transport failure.
	ErrUpstream = xerrors.New("upstream unavailable")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
