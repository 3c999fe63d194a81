package mcp

import (
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
)

// PromptSource exposes prompt templates as resources.
type PromptSource interface {
	Load(name string) (string, error)
}

// Ports aggregates the driving port interfaces used by the MCP server.
type Ports struct {
	// Retrieval backs the search tool.
	Retrieval driving.RetrievalService

	// Chat backs the ask tool. Optional; without it only search is offered.
	Chat driving.ChatService

	// Prompts backs the prompt resources. Optional.
	Prompts PromptSource
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
