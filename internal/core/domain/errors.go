package domain

import "errors"

// Domain errors represent failures surfaced by stores, readers and services.
// Adapters wrap them with context using fmt.Errorf and callers test them
// with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed caller input, such as embedding and
	// segment batches of different lengths.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupported indicates the store does not support the operation,
	// such as inserting an embedding under an explicit id.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrUnsupportedType indicates an unknown store, reader or handler kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrTransport indicates a connection failure or timeout talking to a backend.
	ErrTransport = errors.New("transport error")

	// ErrBackend indicates the backend answered with an application-level error payload.
	ErrBackend = errors.New("backend error")

	// ErrParse indicates a backend response did not have the expected shape.
	ErrParse = errors.New("malformed response")

	// ErrFeed indicates at least one record of a feed batch was rejected.
	// The whole batch is reported as failed.
	ErrFeed = errors.New("feed failed")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or cannot be reached.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the chat model is not configured or cannot be reached.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrStoreUnavailable indicates no embedding store is configured.
	ErrStoreUnavailable = errors.New("embedding store unavailable")
)
