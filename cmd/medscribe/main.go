// Package main provides the medscribe CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pcameron/medscribe/internal/api"
	"github.com/pcameron/medscribe/internal/config"
	"github.com/pcameron/medscribe/internal/logging"
	"github.com/pcameron/medscribe/internal/render"
	"github.com/pcameron/medscribe/internal/session"
)

var (
	version  = "0.1.0"
	env      *config.Env
	sessions *session.Store
	client   *api.Client
	out      *render.Renderer
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medscribe",
		Short: "Terminal client for the medical transcription assistant",
		Long: `medscribe: chat with the medical transcription assistant from the terminal.

Usage modes:
  medscribe            Start the interactive chat (requires login)
  medscribe <command>  Run a specific command (see below)

Set MEDSCRIBE_API_URL to point at your backend (default http://localhost:8000).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			env = config.Load()
			logging.Enable(env.LogEvents)

			sessions = session.NewStore(env.CredentialsPath())
			if err := sessions.Load(); err != nil {
				// A corrupt credentials file is cleared by Load; start
				// logged out rather than refusing to run.
				fmt.Fprintf(os.Stderr, "Warning: %v (continuing logged out)\n", err)
			}
			sessions.SetTeardownHook(func() {
				fmt.Fprintln(os.Stderr, "Session expired. Run 'medscribe login' to sign in again.")
			})

			client = api.New(env.APIURL, env.Timeout, sessions)
			out = render.New(!env.NoColor)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat()
		},
	}

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newChatCmd(),
		newSendCmd(),
		newClearCmd(),
		newUsersCmd(),
		newStatusCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
