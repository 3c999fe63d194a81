// Package vespa implements driven.EmbeddingStore on top of a Vespa
// application.
//
// Segments are written one document per segment through the
// /document/v1 API and queried with a nearestNeighbor YQL query POSTed to
// /search/. The document schema is chosen with a DocumentHandler: "books"
// for EPUB segments and "news" for RSS articles.
//
// Document ids are derived from the segment rather than generated, so
// re-ingesting a source overwrites its documents:
//
//	id:<namespace>:<docType>::<userKey>[-<segmentIndex>]
//
// The user key is the segment's src-id metadata when present, otherwise a
// name-based UUID of the text (when AvoidDups is set), otherwise a random UUID.
package vespa
