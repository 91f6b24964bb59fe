package formats

import "errors"

// Shared error taxonomy for preview extraction. Low-level parsers return one
// of these (usually wrapped); the orchestrator advances its fallback chain on
// any of them and only surfaces a terminal error once every fallback is
// exhausted.
var (
	// ErrUnrecognized means no descriptor matched the file. This is the
	// normal "no preview possible" outcome, not a failure.
	ErrUnrecognized = errors.New("format not recognized")

	// ErrCorrupt means the container structure is invalid: checksum
	// mismatch, bad magic, truncated chunk list. Always fatal for the
	// attempt that hit it.
	ErrCorrupt = errors.New("container corrupt")

	// ErrEntryNotFound means a well-known entry, table or chunk is absent.
	// Expected for valid documents saved without a preview.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrUnsupportedEncoding means the container is recognized but an
	// inner codec is not implemented.
	ErrUnsupportedEncoding = errors.New("unsupported sub-encoding")

	// ErrDecoderUnavailable means the external decoder binary could not
	// be found or started.
	ErrDecoderUnavailable = errors.New("external decoder unavailable")

	// ErrDecoderTimeout means the external decoder exceeded its wall-clock
	// budget and was killed.
	ErrDecoderTimeout = errors.New("external decoder timed out")
)
