package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"the text to find similar segments for"`
	MaxResults int      `json:"max_results,omitempty" jsonschema:"maximum number of segments to return (default from chat.maxResults)"`
	MinScore   *float64 `json:"min_score,omitempty" jsonschema:"minimum relevance between 0 and 1 (default from chat.minScore)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SegmentOutput `json:"results"`
	Count   int             `json:"count"`
}

// SegmentOutput represents a single stored segment.
type SegmentOutput struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Title    string            `json:"title,omitempty"`
	URL      string            `json:"url,omitempty"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the ingested books and articles"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string          `json:"answer"`
	Sources []SegmentOutput `json:"sources"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find stored book and news segments similar to a text",
	}, s.handleSearch)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question using the stored segments as context",
		}, s.handleAsk)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := driving.SearchOptions{MaxResults: input.MaxResults, MinScore: input.MinScore}
	matches, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{Results: segments(matches), Count: len(matches)}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Chat == nil {
		return nil, AskOutput{}, errors.New("ask is not available without a chat model")
	}

	answer, err := s.ports.Chat.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{Answer: answer.Text, Sources: segments(answer.Sources)}, nil
}

func segments(matches []domain.SearchMatch) []SegmentOutput {
	out := make([]SegmentOutput, len(matches))
	for i := range matches {
		md := matches[i].Segment.Metadata
		out[i] = SegmentOutput{
			ID:       matches[i].ID,
			Score:    matches[i].Score,
			Title:    md.Value(domain.MetadataTitle),
			URL:      md.Value(domain.MetadataURL),
			Text:     matches[i].Segment.Text,
			Metadata: md.Map(),
		}
	}
	return out
}
