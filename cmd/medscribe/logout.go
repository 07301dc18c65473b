package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the persisted session",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if sessions.Current() == nil {
				fmt.Println("Already logged out")
				return
			}
			sessions.Logout()
			fmt.Println("Logged out")
		},
	}
}
