package pir

import "errors"

// Sentinel errors returned at the API boundary. Callers should compare
// against these with errors.Is rather than matching error strings.
var (
	// ErrInvalidParams is returned when a Config or Params value fails
	// validation (plaintext_bits out of [1,16], m or n zero, ...).
	ErrInvalidParams = errors.New("pir: invalid parameters")

	// ErrFilterConstructionFailed is returned when a keyword database's
	// Binary Fuse Filter could not be peeled after all seed retries.
	ErrFilterConstructionFailed = errors.New("pir: filter construction failed")

	// ErrParamsAlreadyUsed is returned when Query or Parse is called on a
	// session that has already produced a query or consumed a response.
	ErrParamsAlreadyUsed = errors.New("pir: session already used")

	// ErrDimensionMismatch is returned when a query or response vector's
	// length does not match the database dimensions it is checked against.
	ErrDimensionMismatch = errors.New("pir: dimension mismatch")

	// ErrDbEncodingOverflow is returned when a database value is longer
	// than the configured element size allows.
	ErrDbEncodingOverflow = errors.New("pir: database value overflows element size")
)
