package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/example/pickup-scheduler/internal/config"
	"github.com/example/pickup-scheduler/internal/db"
	"github.com/example/pickup-scheduler/internal/jobs"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and manage scheduled pickups",
	}
	cmd.AddCommand(newJobListCmd())
	cmd.AddCommand(newJobCancelCmd())
	return cmd
}

func withDB(fn func(ctx context.Context, d *db.DB, cfg config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	d, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(ctx, d, cfg)
}

func newJobListCmd() *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "list",
		Short: "List jobs ordered by window start",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, d *db.DB, _ config.Config) error {
				js, err := jobs.NewRepo(d).List(ctx, limit)
				if err != nil {
					return err
				}
				for _, j := range js {
					reminded := "-"
					if j.ReminderSentAt != nil {
						reminded = j.ReminderSentAt.UTC().Format(time.RFC3339)
					}
					fmt.Printf("%s  lead=%d quote=%d  %s → %s  %s  reminded=%s\n",
						j.ID, j.LeadID, j.QuoteID,
						j.WindowStart.UTC().Format(time.RFC3339),
						j.WindowEnd.UTC().Format(time.RFC3339),
						j.Status, reminded)
				}
				return nil
			})
		},
	}

	c.Flags().IntVar(&limit, "limit", 50, "max jobs to list")
	return c
}

func newJobCancelCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Mark a job cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			return withDB(func(ctx context.Context, d *db.DB, _ config.Config) error {
				repo := jobs.NewRepo(d)
				if _, err := repo.Get(ctx, id); err != nil {
					return err
				}
				if err := repo.Cancel(ctx, id); err != nil {
					return err
				}
				fmt.Printf("job %s cancelled\n", id)
				return nil
			})
		},
	}
	return c
}
