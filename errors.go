package multikv

import (
	"errors"
	"fmt"
)

// Kind identifies one of the fixed error categories a call can fail with.
// Every Kind carries a fixed human-readable diagnostic, mirroring the
// error-slot taxonomy of the C-shaped boundary this package's design is
// rooted in.
type Kind int

const (
	KindUnknown Kind = iota
	KindUninitializedState
	KindArgsWrong
	KindArgsCombo
	KindCorruption
	KindIO
	KindInvalidArgument
	KindNotSupported
)

func (k Kind) String() string {
	switch k {
	case KindUninitializedState:
		return "uninitialized_state"
	case KindArgsWrong:
		return "args_wrong"
	case KindArgsCombo:
		return "args_combo"
	case KindCorruption:
		return "corruption"
	case KindIO:
		return "io"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotSupported:
		return "not_supported"
	default:
		return "error_unknown"
	}
}

// CoreError is the fixed-diagnostic error surfaced through the core's
// error slot. The core never retries on its own; every failure maps to one
// of these and is handed back to the caller as-is.
type CoreError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *CoreError) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Msg: fmt.Sprintf(msg, args...)}
}

func wrapErr(kind Kind, err error, msg string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Msg: fmt.Sprintf(msg, args...), Err: err}
}

// Fixed diagnostics for the conditions §7 calls out by name. Callers can
// match on these with errors.Is.
var (
	ErrNilDatabase       = newErr(KindUninitializedState, "database handle is null")
	ErrDropMainHandle    = newErr(KindArgsCombo, "cannot drop the handle of the main collection")
	ErrNamesWithoutCount = newErr(KindArgsCombo, "requested collection names without a count pointer")
	ErrNotSupported      = newErr(KindNotSupported, "feature not supported by this build")
	ErrTxnConflict       = newErr(KindInvalidArgument, "transaction conflicts with a concurrent commit")
	ErrTxnNotActive      = newErr(KindArgsWrong, "transaction is not active")
	ErrCollectionExists  = newErr(KindArgsWrong, "a collection with this name already exists")
	ErrCollectionUnknown = newErr(KindArgsWrong, "no such collection")
	ErrUnknownOption     = newErr(KindInvalidArgument, "unknown option bit")
)

// Is reports whether err is a *CoreError of the given kind, unwrapping as
// needed. It exists so callers porting from the C-shaped boundary can test
// "is this args_combo" without importing errors.Is + type-switch boilerplate.
func Is(err error, kind Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// PayloadError wraps a failure that occurred while decoding or validating a
// specific byte payload, eliding the middle of long payloads in its
// Error() string the way a hex dump of a crash report would.
type PayloadError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func payloadErrf(data []byte, off int, err error, format string, args ...any) error {
	return &PayloadError{Data: data, Off: off, Err: err, Msg: fmt.Sprintf(format, args...)}
}

func (e *PayloadError) Unwrap() error { return e.Err }

func (e *PayloadError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		}
		return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
	}
	p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
	}
	return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
}
