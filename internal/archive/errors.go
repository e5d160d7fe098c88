package archive

import "errors"

var (
	// ErrInvalidArgument signals malformed construction input, such as a
	// pairwise session created with a participant count other than two.
	ErrInvalidArgument = errors.New("archive: invalid argument")

	// ErrNotFound signals that a requested session or identity does not
	// exist in storage.
	ErrNotFound = errors.New("archive: not found")

	// ErrCodec signals a wire decode failure. Decoding is all-or-nothing: a
	// half-populated session would corrupt downstream state, so any decode
	// problem fails the whole call.
	ErrCodec = errors.New("archive: codec failure")
)
