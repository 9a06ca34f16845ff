package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/promptwatch/promptwatch/pkg/backend"
	"github.com/promptwatch/promptwatch/pkg/conversation"
	"github.com/promptwatch/promptwatch/pkg/document"
)

func newRunCommand() *cobra.Command {
	var (
		dryRun  bool
		stream  bool
		timeout int
	)

	cmd := &cobra.Command{
		Use:   "run <file.prompt>",
		Short: "generate the next response for a single prompt file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			doc, err := document.Parse(string(raw))
			if err != nil {
				return err
			}
			if err := doc.Validate(); err != nil {
				return err
			}
			if timeout > 0 {
				doc.Config.Timeout = time.Duration(timeout) * time.Second
			}

			messages := doc.Messages()
			if dryRun {
				printDryRun(doc, messages)
				return nil
			}

			var opts []backend.Option
			if stream {
				opts = append(opts, backend.WithDeltaHandler(func(delta string) {
					fmt.Print(delta)
				}))
			}

			gen, err := backend.New(doc.Config, opts...)
			if err != nil {
				return err
			}
			if validator, ok := gen.(backend.ModelValidator); ok {
				if _, err := validator.ValidateModel(cmd.Context()); err != nil {
					return err
				}
			}

			log.Debug().
				Str("server_url", doc.Config.ServerURL).
				Str("model", doc.Config.Model).
				Int("turns", len(doc.Turns)).
				Int("messages", len(messages)).
				Msg("generating response")

			start := time.Now()
			result, err := gen.Generate(cmd.Context(), messages)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)
			if stream {
				fmt.Println()
			}

			if err := document.AppendResponse(path, result.Text, elapsed, result.Usage); err != nil {
				return err
			}

			fmt.Printf("Response appended to: %s\n", path)
			event := log.Debug().Dur("elapsed", elapsed).Int("chars", len(result.Text))
			if result.Usage != nil {
				event = event.Int("tokens", result.Usage.TotalTokens)
			}
			event.Msg("generation finished")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be sent without generating")
	cmd.Flags().BoolVar(&stream, "stream", false, "print the response as it is generated")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "override request timeout in seconds")
	return cmd
}

func printDryRun(doc *document.Document, messages []conversation.Message) {
	fmt.Println("=== PARSED SECTIONS ===")
	for i, turn := range doc.Turns {
		fmt.Printf("%d. %s: %s\n", i+1, strings.ToUpper(string(turn.Kind)), preview(turn.Content))
	}

	fmt.Println("\n=== MESSAGES FOR API ===")
	for i, msg := range messages {
		fmt.Printf("%d. %s: %s\n", i+1, msg.Role, preview(msg.Content))
	}

	fmt.Println("\n=== CONFIG ===")
	fmt.Printf("server_url: %s\n", doc.Config.ServerURL)
	fmt.Printf("model: %s\n", doc.Config.Model)
	fmt.Printf("backend: %s\n", doc.Config.Backend)
	if doc.Config.MaxTokens != nil {
		fmt.Printf("max_tokens: %d\n", *doc.Config.MaxTokens)
	} else {
		fmt.Println("max_tokens: none")
	}
	fmt.Printf("temperature: %g\n", doc.Config.Temperature)
	fmt.Printf("top_p: %g\n", doc.Config.TopP)
	fmt.Printf("timeout: %s\n", doc.Config.Timeout)
	for key, value := range doc.Config.Extra {
		fmt.Printf("%s: %s\n", key, value)
	}

	fmt.Println("\n(Dry run - no generation performed)")
}

func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
