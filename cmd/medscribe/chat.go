package main

import (
	"github.com/spf13/cobra"

	"github.com/pcameron/medscribe/internal/chat"
	"github.com/pcameron/medscribe/internal/session"
	"github.com/pcameron/medscribe/internal/tui"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat()
		},
	}
}

func runChat() error {
	if err := guard(session.RequireAuthenticated); err != nil {
		return err
	}
	pipeline := chat.NewPipeline(client, sessions)
	return tui.Run(pipeline, sessions, client)
}
