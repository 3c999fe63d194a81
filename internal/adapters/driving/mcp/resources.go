package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
)

const (
	// uriScheme is the custom URI scheme for RAG sample resources.
	uriScheme = "ragsample://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Prompts == nil {
		return
	}

	for _, name := range []string{driven.PromptAnswer, driven.PromptChatSystem} {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "prompts/" + name,
			Name:        "prompt-" + name,
			Description: fmt.Sprintf("The %s prompt template", name),
			MIMEType:    "text/plain",
		}, s.handlePromptResource)
	}
}

// handlePromptResource returns the text of a prompt template.
func (s *Server) handlePromptResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractPromptName(req.Params.URI)
	if name == "" || s.ports.Prompts == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	text, err := s.ports.Prompts.Load(name)
	if err != nil {
		return nil, fmt.Errorf("loading prompt %s: %w", name, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		}},
	}, nil
}

// extractPromptName extracts the name from a URI like ragsample://prompts/{name}.
func extractPromptName(uri string) string {
	const prefix = uriScheme + "prompts/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	name := strings.TrimPrefix(uri, prefix)
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}
