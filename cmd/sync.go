package cmd

import (
	"context"
	"fmt"

	"github.com/example/pickup-scheduler/internal/calendar"
	"github.com/example/pickup-scheduler/internal/config"
	"github.com/example/pickup-scheduler/internal/db"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect calendar sync state",
	}
	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncResetCmd())
	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored sync cursor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, d *db.DB, cfg config.Config) error {
				token, err := calendar.NewSyncStateRepo(d).Token(ctx, cfg.Calendar.CalendarID)
				if err != nil {
					return err
				}
				if token == "" {
					fmt.Printf("%s: no cursor (next pass does a full-window scan)\n", cfg.Calendar.CalendarID)
					return nil
				}
				fmt.Printf("%s: cursor %s\n", cfg.Calendar.CalendarID, token)
				return nil
			})
		},
	}
}

func newSyncResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the sync cursor, forcing a full resync next pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, d *db.DB, cfg config.Config) error {
				if err := calendar.NewSyncStateRepo(d).ClearToken(ctx, cfg.Calendar.CalendarID); err != nil {
					return err
				}
				fmt.Printf("%s: cursor cleared\n", cfg.Calendar.CalendarID)
				return nil
			})
		},
	}
}
