package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcameron/medscribe/internal/admin"
	"github.com/pcameron/medscribe/internal/session"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts (admin)",
	}
	cmd.AddCommand(newUsersAddCmd())
	return cmd
}

func newUsersAddCmd() *cobra.Command {
	form := &admin.Form{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new user account",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return guard(session.RequireAdmin)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if form.Username == "" {
				if form.Username, err = promptLine("Username"); err != nil {
					return err
				}
			}
			if form.Email == "" {
				if form.Email, err = promptLine("Email"); err != nil {
					return err
				}
			}
			if form.FullName == "" {
				if form.FullName, err = promptLine("Full name"); err != nil {
					return err
				}
			}
			if form.Password == "" {
				if form.Password, err = promptPassword("Password"); err != nil {
					return err
				}
			}

			username := form.Username
			if err := form.Submit(cmd.Context(), client); err != nil {
				return err
			}
			fmt.Printf("User %q has been created successfully!\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&form.Username, "username", "", "username for the new account")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.FullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&form.Password, "password", "", "initial password (prompted when omitted)")
	return cmd
}
