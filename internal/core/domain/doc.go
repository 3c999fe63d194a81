// Package domain defines the core types of the RAG sample.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Source text produced by a reader, before splitting
//   - TextSegment: A chunk of a document with its metadata
//   - Metadata: An ordered key-value bag attached to documents and segments
//   - SearchMatch: A stored segment returned by a similarity search
//   - Answer: A chat answer together with the segments it was built from
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
