package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCompile Phase = "compile" // capability construction
	PhaseEncode  Phase = "encode"  // Go value to region
	PhaseDecode  Phase = "decode"  // region to borrowed view
	PhaseStore   Phase = "store"   // backing store and spool operations
)

// Kind categorizes the error
type Kind string

const (
	KindTruncatedHead    Kind = "truncated_head"
	KindTruncatedPayload Kind = "truncated_payload"
	KindCorruptLength    Kind = "corrupt_length"
	KindAllocation       Kind = "allocation"
	KindUnsupported      Kind = "unsupported"
	KindInvalidVariant   Kind = "invalid_variant"
	KindInvalidData      Kind = "invalid_data"
	KindOverflow         Kind = "overflow"
	KindReentrant        Kind = "reentrant"
	KindMisaligned       Kind = "misaligned"
	KindNilPointer       Kind = "nil_pointer"
	KindChecksum         Kind = "checksum"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
	Offset int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase != "" && e.Phase != t.Phase {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// Sentinel targets for errors.Is. They match on Kind across all phases.
var (
	ErrTruncatedHead    = &Error{Kind: KindTruncatedHead}
	ErrTruncatedPayload = &Error{Kind: KindTruncatedPayload}
	ErrCorruptLength    = &Error{Kind: KindCorruptLength}
	ErrAllocation       = &Error{Kind: KindAllocation}
	ErrUnsupported      = &Error{Kind: KindUnsupported}
	ErrInvalidVariant   = &Error{Kind: KindInvalidVariant}
	ErrInvalidData      = &Error{Kind: KindInvalidData}
	ErrReentrant        = &Error{Kind: KindReentrant}
	ErrMisaligned       = &Error{Kind: KindMisaligned}
	ErrChecksum         = &Error{Kind: KindChecksum}
)

// Is forwards to the standard library so callers need a single errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As forwards to the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }

// KindOf returns the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Offset sets the byte offset within the buffer being processed
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TruncatedHead reports a buffer shorter than the head of the type being decoded.
func TruncatedHead(goType string, need, have int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindTruncatedHead,
		GoType: goType,
		Detail: fmt.Sprintf("need %d head bytes, have %d", need, have),
		Value:  have,
	}
}

// TruncatedPayload reports a length field that reaches past the end of the buffer.
func TruncatedPayload(path []string, offset, need, have int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindTruncatedPayload,
		Path:   path,
		Offset: offset,
		Detail: fmt.Sprintf("payload of %d bytes at offset %d exceeds buffer (%d bytes remain)", need, offset, have),
		Value:  need,
	}
}

// CorruptLength reports a length or count that cannot describe a valid payload.
func CorruptLength(path []string, offset int, detail string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindCorruptLength,
		Path:   path,
		Offset: offset,
		Detail: detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size int, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to grow region to %d bytes", size),
		Cause:  cause,
	}
}

// InvalidDiscriminant creates an invalid discriminant error for tagged unions
func InvalidDiscriminant(phase Phase, path []string, disc uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidVariant,
		Path:   path,
		Detail: fmt.Sprintf("discriminant %d matches no declared case", disc),
		Value:  disc,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, path []string, goType string, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Path:   path,
		GoType: goType,
		Detail: what,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, limit any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("value %v exceeds limit %v", value, limit),
		Value:  value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, offset int, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Offset: offset,
		Detail: detail,
	}
}

// Reentrant reports a reference slot that was already fixed up by an earlier decode.
func Reentrant(path []string, offset int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindReentrant,
		Path:   path,
		Offset: offset,
		Detail: "reference slot already patched; each record may be decoded once",
	}
}

// Misaligned reports a buffer whose address cannot hold the requested head.
func Misaligned(phase Phase, goType string, addr uintptr, align uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMisaligned,
		GoType: goType,
		Detail: fmt.Sprintf("address %#x is not aligned to %d", addr, align),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Checksum reports a spool frame whose body does not match its checksum.
func Checksum(want, got uint32) *Error {
	return &Error{
		Phase:  PhaseStore,
		Kind:   KindChecksum,
		Detail: fmt.Sprintf("checksum mismatch: want %08x, got %08x", want, got),
	}
}
