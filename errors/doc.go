// Package errors provides structured error types for the region codec.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go type name, byte offset and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindCorruptLength).
//		Path("Log", "Tags", "[2]").
//		Offset(96).
//		Detail("slice cap %d differs from len %d", 9, 3).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TruncatedHead("main.Log", 40, 12)
//	err := errors.TruncatedPayload(path, 40, 11, 3)
//
// Decode failures are non-fatal: the candidate record is rejected and the caller
// decides whether to wait for more bytes, skip, or abort. Match them by kind:
//
//	if errors.Is(err, errors.ErrTruncatedHead) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
