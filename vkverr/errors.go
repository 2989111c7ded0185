// Package vkverr defines the engine's error taxonomy: stable categories
// callers can branch on with errors.Is, rather than matching on message
// text.
package vkverr

import "fmt"

// Kind classifies an error so callers can decide whether to retry.
type Kind int

const (
	// KindNotCommitted means a commit was rejected because a concurrent
	// write conflicted with the transaction's read set. Recoverable:
	// retry with a fresh read version.
	KindNotCommitted Kind = iota

	// KindTransactionCancelled means the transaction was cancelled
	// (explicitly, or because the server observed it as abandoned).
	KindTransactionCancelled

	// KindPastVersion means the requested read version is older than
	// the oldest version the engine can still serve.
	KindPastVersion

	// KindInvertedRange means a range's begin key sorts after its end
	// key.
	KindInvertedRange

	// KindExactModeWithoutLimits means get_range was called with
	// mode=Exact but no positive limit.
	KindExactModeWithoutLimits

	// KindOutOfMemory means a heap bucket could not satisfy an
	// allocation. The commit that triggered it is failed and no state
	// change is observable.
	KindOutOfMemory

	// KindInvalidOptionValue means a configuration value was out of the
	// accepted range (e.g. a negative timeout).
	KindInvalidOptionValue

	// KindCorrupted marks an internal invariant violation. It is never
	// returned from a correctly used public API; the heap raises it
	// (heap.ErrBadRef) when a Ref does not resolve to a page region.
	KindCorrupted
)

// String renders a Kind for logging and diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNotCommitted:
		return "NotCommitted"
	case KindTransactionCancelled:
		return "TransactionCancelled"
	case KindPastVersion:
		return "PastVersion"
	case KindInvertedRange:
		return "InvertedRange"
	case KindExactModeWithoutLimits:
		return "ExactModeWithoutLimits"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindInvalidOptionValue:
		return "InvalidOptionValue"
	case KindCorrupted:
		return "Corrupted"
	default:
		return fmt.Sprintf("UnknownKind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, vkverr.NotCommitted) works against wrapped instances.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind wrapping cause (which may
// be nil).
func New(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Sentinels for errors.Is comparisons against a bare kind, mirroring
// the taxonomy enumerated in the engine's external interface contract.
var (
	NotCommitted           = &Error{Kind: KindNotCommitted, Msg: "conflicting commit"}
	TransactionCancelled   = &Error{Kind: KindTransactionCancelled, Msg: "transaction cancelled"}
	PastVersion            = &Error{Kind: KindPastVersion, Msg: "read version too old"}
	InvertedRange          = &Error{Kind: KindInvertedRange, Msg: "range begin sorts after end"}
	ExactModeWithoutLimits = &Error{Kind: KindExactModeWithoutLimits, Msg: "Exact mode requires a positive limit"}
	OutOfMemory            = &Error{Kind: KindOutOfMemory, Msg: "heap allocation failed"}
	InvalidOptionValue     = &Error{Kind: KindInvalidOptionValue, Msg: "invalid option value"}
	Corrupted              = &Error{Kind: KindCorrupted, Msg: "internal invariant violated"}
)
