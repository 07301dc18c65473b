package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pcameron/medscribe/internal/chat"
	"github.com/pcameron/medscribe/internal/session"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the backend conversation for the current session",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return guard(session.RequireAuthenticated)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline := chat.NewPipeline(client, sessions)
			if err := pipeline.ClearSession(cmd.Context()); err != nil {
				return err
			}
			if notice := pipeline.Notice(); notice != "" {
				fmt.Fprintln(os.Stderr, out.Notice(notice))
				return fmt.Errorf("clear failed")
			}
			fmt.Println("Session cleared")
			return nil
		},
	}
}
