package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/conversation"
	"github.com/mikey/gmail-spam-detector/internal/core"
)

func newChatCmd(gf *globalFlags) *cobra.Command {
	var systemPrompt string
	var showHistory bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the configured LLM",
		Long: `Start an interactive session with the configured LLM. Each line read from
stdin is sent as a message. Type "exit" or "quit", or close stdin, to end it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(cmd, gf, nil)
			if err != nil {
				return fmt.Errorf("failed to build dependency container: %w", err)
			}

			return container.Invoke(func(cfg *config.Config, logger *zap.Logger, client *conversation.Client) error {
				defer logger.Sync()
				defer func() {
					if err := client.Close(); err != nil {
						logger.Error("Failed to close AI client", zap.Error(err))
					}
				}()

				detectorCfg, err := cfg.GetDetector()
				if err != nil {
					return err
				}
				return runChat(cmd, client, detectorCfg.UserID, systemPrompt, showHistory)
			})
		},
	}

	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "System instruction for the session")
	cmd.Flags().BoolVar(&showHistory, "history", false, "Print the conversation when the session ends")

	return cmd
}

// runChat drives one session over the command's stdin and stdout
func runChat(cmd *cobra.Command, client core.AIConversationClient, userID, systemPrompt string, showHistory bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if systemPrompt != "" {
		client.SetUserPreferences(userID, core.UserPreferences{SystemPrompt: systemPrompt})
	}
	sessionID, err := client.StartNewSession(ctx, userID)
	if err != nil {
		return err
	}
	defer client.EndSession(sessionID)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply, err := client.SendMessage(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, reply.Content)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if showHistory {
		printHistory(out, client.GetChatHistory(sessionID))
	}
	return nil
}

func printHistory(out io.Writer, history []core.ChatMessage) {
	fmt.Fprintln(out, "--- history ---")
	for _, m := range history {
		fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.Role, m.Content)
	}
}
