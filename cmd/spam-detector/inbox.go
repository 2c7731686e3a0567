package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mikey/gmail-spam-detector/internal/core"
)

func newInboxCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List, read, send and trash emails",
	}

	cmd.AddCommand(newInboxListCmd(gf))
	cmd.AddCommand(newInboxShowCmd(gf))
	cmd.AddCommand(newInboxSendCmd(gf))
	cmd.AddCommand(newInboxTrashCmd(gf))

	return cmd
}

// withMailClient runs fn with the configured mail client
func withMailClient(cmd *cobra.Command, gf *globalFlags, fn func(context.Context, core.MailClient) error) error {
	container, err := buildContainer(cmd, gf, nil)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	return container.Invoke(func(mailClient core.MailClient) error {
		return fn(cmd.Context(), mailClient)
	})
}

func newInboxListCmd(gf *globalFlags) *cobra.Command {
	var max int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMailClient(cmd, gf, func(ctx context.Context, mc core.MailClient) error {
				emails, err := mc.GetMessages(ctx, max)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, e := range emails {
					fmt.Fprintf(out, "%s\n  From:    %s\n  Subject: %s\n  Date:    %s\n", e.ID, e.From, e.Subject, e.Date)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&max, "max", "n", 10, "Maximum number of emails to list")
	return cmd
}

func newInboxShowCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a single email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMailClient(cmd, gf, func(ctx context.Context, mc core.MailClient) error {
				e, err := mc.GetMessage(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "From:    %s\nTo:      %s\nSubject: %s\nDate:    %s\n\n%s\n", e.From, e.To, e.Subject, e.Date, e.Body)
				for _, a := range e.Attachments {
					fmt.Fprintf(out, "Attachment: %s (%s)\n", a.Filename(), a.ContentType())
				}
				return nil
			})
		},
	}
}

// loadAttachments reads files from disk, guessing their content type from
// the extension
func loadAttachments(paths []string) ([]core.Attachment, error) {
	attachments := make([]core.Attachment, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment: %w", err)
		}
		name := filepath.Base(p)
		attachments = append(attachments, core.NewAttachment(name, data, mime.TypeByExtension(filepath.Ext(name))))
	}
	return attachments, nil
}

func newInboxSendCmd(gf *globalFlags) *cobra.Command {
	var to, subject, body string
	var attach []string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a plain text email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			attachments, err := loadAttachments(attach)
			if err != nil {
				return err
			}
			return withMailClient(cmd, gf, func(ctx context.Context, mc core.MailClient) error {
				if err := mc.SendMessage(ctx, to, subject, body, attachments); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent %q to %s\n", subject, to)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject line")
	cmd.Flags().StringVar(&body, "body", "", "Message body")
	cmd.Flags().StringSliceVar(&attach, "attach", nil, "Files to attach")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newInboxTrashCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "trash ID",
		Short: "Move an email to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMailClient(cmd, gf, func(ctx context.Context, mc core.MailClient) error {
				if err := mc.DeleteMessage(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to trash\n", args[0])
				return nil
			})
		},
	}
}
