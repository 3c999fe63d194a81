// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// RAG sample. It lets AI assistants search the embedding store and ask
// questions answered from it.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
