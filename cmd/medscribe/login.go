package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Authenticate against the backend and persist the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				username = args[0]
			}
			if username == "" {
				var err error
				username, err = promptLine("Username")
				if err != nil {
					return err
				}
			}
			if username == "" {
				return fmt.Errorf("username is required")
			}

			password, err := promptPassword("Password")
			if err != nil {
				return err
			}

			sess, err := sessions.Login(cmd.Context(), client, username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Println(out.Whoami(sess))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username to sign in as")
	return cmd
}
