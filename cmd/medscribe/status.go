package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pcameron/medscribe/internal/session"
)

func newStatusCmd() *cobra.Command {
	var withStats bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check backend health and the active LLM provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			health, err := client.Health(ctx)
			if err != nil {
				fmt.Println(out.Health("", false))
				return fmt.Errorf("backend unreachable: %w", err)
			}
			fmt.Println(out.Health(health.Status, true))

			provider, err := client.Provider(ctx)
			if err != nil {
				fmt.Fprintln(os.Stderr, out.Notice("provider lookup failed"))
			} else {
				fmt.Println(out.Provider(provider.LLMProvider, provider.Model))
			}

			if !withStats {
				return nil
			}
			if err := guard(session.RequireAdmin); err != nil {
				return err
			}
			stats, err := client.MemoryStats(ctx)
			if err != nil {
				return fmt.Errorf("memory stats: %w", err)
			}
			fmt.Print(out.MemoryStats(stats))
			return nil
		},
	}

	cmd.Flags().BoolVar(&withStats, "stats", false, "include conversation memory statistics (admin)")
	return cmd
}
