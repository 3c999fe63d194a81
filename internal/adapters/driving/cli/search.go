package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
)

// snippetRunes caps the segment text shown per result.
const snippetRunes = 160

var (
	searchLimit    int
	searchMinScore float64
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored segments",
	Long: `Embeds the query and returns the most similar stored segments, best first.
Zero values for --limit and --min-score use chat.maxResults and chat.minScore.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "minimum similarity score in [0, 1] (default from chat.minScore)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Retrieval == nil {
		return errors.New("retrieval service not configured")
	}

	opts := driving.SearchOptions{MaxResults: searchLimit}
	if cmd.Flags().Changed("min-score") {
		minScore := searchMinScore
		opts.MinScore = &minScore
	}

	matches, err := svc.Retrieval.Retrieve(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, matches)
	}
	outputSearchTable(cmd, matches)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, matches []domain.SearchMatch) error {
	if matches == nil {
		matches = []domain.SearchMatch{}
	}
	data, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, matches []domain.SearchMatch) {
	if len(matches) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, m := range matches {
		// Format: [N] Title (Score)
		meta := m.Segment.Metadata
		title := meta.Value(domain.MetadataTitle)
		if title == "" {
			title = m.ID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, m.Score)
		if url := meta.Value(domain.MetadataURL); url != "" {
			cmd.Printf("      %s\n", url)
		}
		if snippet := snippet(m.Segment.Text); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return string(runes[:snippetRunes]) + "..."
}
