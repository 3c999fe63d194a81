package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/custodia-labs/ragsample/internal/adapters/driving/grpcapi"
	"github.com/custodia-labs/ragsample/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/ragsample/internal/core/domain"
)

var (
	askJSON   bool
	askRemote string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Retrieves the segments most similar to the question and asks the chat
model to answer from them. No conversation history is kept.

With --remote the question is sent to a running "ragsample serve" instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer and its sources as JSON")
	askCmd.Flags().StringVar(&askRemote, "remote", "", "gRPC address of a running server, e.g. localhost:4242")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	if askRemote != "" {
		return askRemoteServer(cmd, question)
	}

	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Chat == nil {
		return errors.New("chat service not configured")
	}

	answer, err := svc.Chat.Ask(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(wrap(answer.Text))
	printSources(cmd, answer.Sources)
	return nil
}

func askRemoteServer(cmd *cobra.Command, question string) error {
	conn, err := grpc.NewClient(askRemote, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connect %s: %w", askRemote, err)
	}
	defer conn.Close()

	text, err := grpcapi.NewClient(conn).Ask(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	cmd.Println(wrap(text))
	return nil
}

func printSources(cmd *cobra.Command, matches []domain.SearchMatch) {
	labels := chat.SourceLabels(matches)
	if len(labels) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for _, label := range labels {
		cmd.Printf("  - %s\n", label)
	}
}
