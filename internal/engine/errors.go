package engine

import (
	"errors"

	"txcopilot/internal/index"
	"txcopilot/internal/records"
)

// The resolution error taxonomy. Only ErrDataNotFound is fatal; every other
// failure degrades to a well-formed Result.
var (
	// ErrDataNotFound: the record source is missing. Nothing can be grounded.
	ErrDataNotFound = records.ErrDataNotFound

	// ErrIndexUnavailable: the vector index is absent or unreadable.
	// Retrieval falls back to keyword overlap.
	ErrIndexUnavailable = index.ErrUnavailable

	// ErrGenerationService: the generation service failed or timed out.
	// The resolution degrades to the deterministic path or a refusal.
	ErrGenerationService = errors.New("engine: generation service failure")

	// ErrMalformedResponse: the model's final output was not the expected
	// strict JSON. The raw text is wrapped instead of discarded.
	ErrMalformedResponse = errors.New("engine: malformed model response")
)
