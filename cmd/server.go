package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/pickup-scheduler/internal/audit"
	"github.com/example/pickup-scheduler/internal/booking"
	"github.com/example/pickup-scheduler/internal/calendar"
	"github.com/example/pickup-scheduler/internal/config"
	"github.com/example/pickup-scheduler/internal/convstate"
	"github.com/example/pickup-scheduler/internal/db"
	"github.com/example/pickup-scheduler/internal/jobs"
	"github.com/example/pickup-scheduler/internal/leads"
	"github.com/example/pickup-scheduler/internal/migrate"
	"github.com/example/pickup-scheduler/internal/notify"
	"github.com/example/pickup-scheduler/internal/scheduler"
	"github.com/example/pickup-scheduler/internal/slots"
	"github.com/example/pickup-scheduler/internal/web"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the scheduling API and background pollers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
			slog.SetDefault(log)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}

			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()

			leadRepo := leads.NewRepo(d)
			jobRepo := jobs.NewRepo(d)
			auditRepo := audit.NewRepo(d)
			syncRepo := calendar.NewSyncStateRepo(d)
			conv := convstate.NewStore(rdb)

			var cal calendar.Provider
			if cfg.Calendar.Enabled {
				cal = calendar.New(cfg.Calendar.BaseURL, cfg.Calendar.Token)
			}

			var chat, mail notify.Sender
			if cfg.Notify.ChatWebhookURL != "" {
				chat = notify.NewChatWebhook(cfg.Notify.ChatWebhookURL)
			}
			if cfg.Notify.MailAPIURL != "" {
				mail = notify.NewMailAPI(cfg.Notify.MailAPIURL, cfg.Notify.MailAPIKey, cfg.Notify.FromEmail)
			}

			gen := &slots.Generator{
				Leads:      leadRepo,
				Cache:      conv,
				CalendarID: cfg.Calendar.CalendarID,
				Opts: slots.Options{
					OpenHour:    cfg.Business.OpenHour,
					CloseHour:   cfg.Business.CloseHour,
					Step:        cfg.Business.SlotStep,
					Limit:       cfg.Business.SlotLimit,
					MinGap:      cfg.Business.MinSlotGap,
					HorizonDays: cfg.Business.HorizonDays,
				},
				Log: log,
			}
			if cal != nil {
				gen.Avail = cal
			}

			coord := &booking.Coordinator{
				Leads:        leadRepo,
				Jobs:         jobRepo,
				Audit:        auditRepo,
				Cal:          cal,
				CalendarID:   cfg.Calendar.CalendarID,
				Chat:         chat,
				Mail:         mail,
				ReminderLead: cfg.Business.ReminderLead,
				Log:          log,
			}

			reminder := &scheduler.Reminder{
				Jobs:  jobRepo,
				Leads: leadRepo,
				Audit: auditRepo,
				Chat:  chat,
				Mail:  mail,
				Log:   log,
			}
			reminderPoller := scheduler.NewReminderPoller(reminder, cfg.Pollers.ReminderInterval)
			reminderPoller.Start()
			defer reminderPoller.Stop()

			if cal != nil {
				reconciler := &scheduler.Reconciler{
					Cal:        cal,
					CalendarID: cfg.Calendar.CalendarID,
					Sync:       syncRepo,
					Jobs:       jobRepo,
					Audit:      auditRepo,
					LookBack:   cfg.Pollers.LookBack,
					LookAhead:  cfg.Pollers.LookAhead,
					Log:        log,
				}
				reconcilePoller := scheduler.NewReconcilerPoller(reconciler, cfg.Pollers.ReconcileInterval)
				reconcilePoller.Start()
				defer reconcilePoller.Stop()
			}

			ws := &web.Server{
				Gen:      gen,
				Book:     coord,
				Conv:     conv,
				Leads:    leadRepo,
				Tokens:   slots.DefaultTokens(),
				APIToken: cfg.Server.APIToken,
				Log:      log,
			}
			return web.Start(ctx, cfg.Server.ListenAddr, ws.Routes())
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
