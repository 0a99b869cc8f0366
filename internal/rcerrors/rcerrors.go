// Package rcerrors defines the sentinel failure kinds of spec.md §7 and
// wraps them the way the teacher's own internal/lsp/cache package wraps
// errors with golang.org/x/xerrors: every wrap preserves %w so
// errors.Is/errors.As still match the sentinel after the message gains
// context.
package rcerrors

import "golang.org/x/xerrors"

// Sentinel errors, one per spec.md §7 failure kind that is reported
// through the error-return path (fixed-point non-convergence is
// deliberately absent: it is a defined fallback, not a failure).
var (
	ErrParse           = xerrors.New("parse failure")
	ErrMalformedCFG    = xerrors.New("malformed cfg")
	ErrUnknownIdent    = xerrors.New("unknown identifier")
	ErrMissingFunction = xerrors.New("reference to function with neither cfg nor intrinsic entry")
)

// Malformed wraps ErrMalformedCFG with a reason, for internal/ir.Verify
// failures raised at the boundary between the analysis core (which
// asserts and aborts, per spec.md §7) and the CLI (which turns the
// panic into a clean diagnostic).
func Malformed(reason string) error {
	return xerrors.Errorf("%s: %w", reason, ErrMalformedCFG)
}

// UnknownIdent wraps ErrUnknownIdent, naming the offending identifier.
func UnknownIdent(name string) error {
	return xerrors.Errorf("%q: %w", name, ErrUnknownIdent)
}

// MissingFunction wraps ErrMissingFunction, naming the callee.
func MissingFunction(name string) error {
	return xerrors.Errorf("%q: %w", name, ErrMissingFunction)
}

// Parse wraps ErrParse with a source position and a formatted reason.
func Parse(pos string, format string, args ...any) error {
	return xerrors.Errorf("%s: %s: %w", pos, xerrors.Errorf(format, args...), ErrParse)
}
