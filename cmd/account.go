package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/teemow/drivelog/internal/account"
	"github.com/teemow/drivelog/internal/credential"
	"github.com/teemow/drivelog/internal/ui"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the Google account drives are logged with",
	}
	cmd.AddCommand(newAccountLoginCmd(), newAccountStatusCmd(), newAccountLogoutCmd())
	return cmd
}

func newAccountLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Choose an account and authorize drivelog to use its calendars",
		Long: `Resolve an account and obtain an auth token for it. Without --account the
stored account is used, or you are asked to choose one. When Google needs
your approval, open the printed URL and paste the code it shows.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			term := ui.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
			a, err := newApp(ctx, cfg, logger, appOptions{Terminal: term})
			if err != nil {
				return err
			}
			defer a.Close()

			cred, err := a.resolver.EnsureAuthenticated(ctx, cfg.Account)
			if account.IsCancelled(err) {
				ui.Notify(term.Out(), ui.LevelInfo, "Cancelled")
				return nil
			}
			if err != nil {
				return report(term, err)
			}
			ui.Notify(term.Out(), ui.LevelSuccess, "Signed in as %s", cred.AccountName)
			return nil
		},
	}
}

func newAccountStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored account and its authentication state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, closeStore, err := openCredentials(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			printStatus(cmd.OutOrStdout(), creds.Snapshot(), cfg.Calendar.Title)
			return nil
		},
	}
}

func newAccountLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored account, tokens and session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			creds, closeStore, err := openCredentials(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := creds.Reset(ctx); err != nil {
				return err
			}
			ui.Notify(cmd.OutOrStdout(), ui.LevelSuccess, "Signed out")
			return nil
		},
	}
}

func printStatus(w io.Writer, cred credential.Credential, title string) {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}

	name := cred.AccountName
	if name == "" {
		name = ui.DimStyle.Render("(none)")
	}
	fmt.Fprintf(w, "Account:          %s\n", name)
	fmt.Fprintf(w, "State:            %s\n", account.StateOf(cred))
	fmt.Fprintf(w, "Auth token:       %s\n", yesNo(cred.HasToken()))
	fmt.Fprintf(w, "Session bound:    %s\n", yesNo(cred.HasSession()))
	fmt.Fprintf(w, "Driving calendar: %s\n", title)
}
