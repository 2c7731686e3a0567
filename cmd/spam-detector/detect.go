package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/gmail-spam-detector/internal/adapters/report"
	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/conversation"
	"github.com/mikey/gmail-spam-detector/internal/core"
)

// detectOverrides maps the detect flags the user set to configuration keys
func detectOverrides(cmd *cobra.Command) (map[string]any, error) {
	overrides := map[string]any{}
	flags := cmd.Flags()

	if flags.Changed("output") {
		v, err := flags.GetString("output")
		if err != nil {
			return nil, err
		}
		overrides["detector.output_csv"] = v
	}
	if flags.Changed("max") {
		v, err := flags.GetInt("max")
		if err != nil {
			return nil, err
		}
		overrides["detector.max_emails"] = v
	}
	if flags.Changed("threshold") {
		v, err := flags.GetFloat64("threshold")
		if err != nil {
			return nil, err
		}
		overrides["spam.threshold"] = v
	}
	if flags.Changed("trash") {
		v, err := flags.GetBool("trash")
		if err != nil {
			return nil, err
		}
		overrides["spam.trash_spam"] = v
	}
	if flags.Changed("whitelist") {
		v, err := flags.GetStringSlice("whitelist")
		if err != nil {
			return nil, err
		}
		overrides["spam.whitelisted_domains"] = v
	}
	if flags.Changed("cache") {
		v, err := flags.GetBool("cache")
		if err != nil {
			return nil, err
		}
		overrides["cache.enabled"] = v
	}

	return overrides, nil
}

func newDetectCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Score the newest inbox emails and write a CSV report",
		Long: `Fetch the newest emails of the inbox, ask the LLM for the probability that
each one is spam and write a CSV file with the columns mail_id and Pct_spam.

Emails the model cannot score are reported with 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := detectOverrides(cmd)
			if err != nil {
				return err
			}
			container, err := buildContainer(cmd, gf, overrides)
			if err != nil {
				return fmt.Errorf("failed to build dependency container: %w", err)
			}

			return container.Invoke(func(
				cfg *config.Config,
				logger *zap.Logger,
				detector *core.SpamDetector,
				aiClient *conversation.Client,
				cacheRepo core.CacheRepository,
			) error {
				defer logger.Sync()
				defer closeResources(logger, aiClient, cacheRepo)

				detectorCfg, err := cfg.GetDetector()
				if err != nil {
					return err
				}

				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				results, err := detector.DetectSpam(ctx, detectorCfg.OutputCSV, detectorCfg.MaxEmails)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				spam := 0
				for _, r := range results {
					marker := ""
					if r.IsSpam {
						marker = "  SPAM"
						spam++
					}
					fmt.Fprintf(out, "%-20s %6s%%%s\n", r.MailID, report.FormatPercent(r.PctSpam), marker)
				}
				fmt.Fprintf(out, "Wrote %d results (%d spam) to %s\n", len(results), spam, detectorCfg.OutputCSV)
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", "spam_report.csv", "CSV file to write")
	cmd.Flags().IntP("max", "n", 10, "Maximum number of emails to score")
	cmd.Flags().Float64("threshold", 70, "Percentage at which an email counts as spam, 0 disables")
	cmd.Flags().Bool("trash", false, "Move emails at or above the threshold to the trash")
	cmd.Flags().StringSlice("whitelist", nil, "Sender domains that are never spam")
	cmd.Flags().Bool("cache", false, "Reuse earlier classifications of identical emails")

	return cmd
}

// closeResources releases the chat backend and stops the cache
func closeResources(logger *zap.Logger, aiClient *conversation.Client, cacheRepo core.CacheRepository) {
	if err := aiClient.Close(); err != nil {
		logger.Error("Failed to close AI client", zap.Error(err))
	}
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}
}
