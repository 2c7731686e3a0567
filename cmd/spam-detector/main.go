package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"github.com/mikey/gmail-spam-detector/internal/di"
)

// globalFlags are shared by every command
type globalFlags struct {
	configFile   string
	verbose      bool
	jsonLog      bool
	provider     string
	mailProvider string
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "spam-detector",
		Short: "Scores inbox emails for spam with an LLM and writes a CSV report",
		Long: `spam-detector reads the newest emails of a Gmail inbox, asks an LLM how
likely each one is spam and writes the percentages to a CSV file.

Besides detection it can list, send and trash emails, run the Gmail
authorization flow and hold an interactive chat with the configured model.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to config file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&flags.jsonLog, "json-log", false, "Output logs in JSON format")
	pf.StringVar(&flags.provider, "provider", "", "LLM provider (gemini, openai, bedrock)")
	pf.StringVar(&flags.mailProvider, "mail-provider", "", "Mail provider (gmail, imap)")

	rootCmd.AddCommand(newDetectCmd(flags))
	rootCmd.AddCommand(newInboxCmd(flags))
	rootCmd.AddCommand(newAuthCmd(flags))
	rootCmd.AddCommand(newChatCmd(flags))

	return rootCmd
}

// buildContainer creates the CLI container for a command. overrides holds
// configuration keys set by the command's own flags.
func buildContainer(cmd *cobra.Command, flags *globalFlags, overrides map[string]any) (*dig.Container, error) {
	if overrides == nil {
		overrides = map[string]any{}
	}
	if flags.provider != "" {
		overrides["llm.provider"] = flags.provider
	}
	if flags.mailProvider != "" {
		overrides["mail.provider"] = flags.mailProvider
	}

	return di.BuildCLIContainer(&di.CLIFlags{
		ConfigFile: flags.configFile,
		Verbose:    flags.verbose,
		JSONLog:    flags.jsonLog,
		Overrides:  overrides,
		In:         cmd.InOrStdin(),
		Out:        cmd.OutOrStdout(),
	})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
