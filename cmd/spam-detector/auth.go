package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey/gmail-spam-detector/internal/adapters/gmail"
	"github.com/mikey/gmail-spam-detector/internal/config"
)

func newAuthCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access and store the OAuth token",
		Long: `Open the Google consent page for the client in gmail.credentials_file, read
the authorization code and store the resulting token in gmail.token_file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(cmd, gf, nil)
			if err != nil {
				return fmt.Errorf("failed to build dependency container: %w", err)
			}

			return container.Invoke(func(cfg *config.Config) error {
				gmailCfg := cfg.GetGmail()

				conf, err := gmail.NewOAuthConfig(gmailCfg.CredentialsFile)
				if err != nil {
					return err
				}
				tok, err := gmail.Authenticate(cmd.Context(), conf, cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if err := gmail.SaveToken(gmailCfg.TokenFile, tok); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", gmailCfg.TokenFile)
				return nil
			})
		},
	}
}
