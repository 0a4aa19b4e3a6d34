package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"dogenews/config"
	"dogenews/internal/app"
	"dogenews/internal/dispatch"
	"dogenews/internal/scheduler"
	"dogenews/internal/subscriber"
	"dogenews/logger"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// setup loads configuration and builds the logger. With requireCredentials,
// missing tokens fail here, before any network call other than the secret lookup.
func setup(cmd *cobra.Command, requireCredentials bool) (*config.Config, *zap.Logger, error) {
	// viper config
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, nil, err
	}

	if requireCredentials {
		if cfg.NeedsSecrets() {
			store, err := config.NewParameterStore(cmd.Context())
			if err != nil {
				return nil, nil, err
			}
			if err := cfg.ResolveSecrets(cmd.Context(), store); err != nil {
				return nil, nil, err
			}
		}
		if err := cfg.CheckCredentials(); err != nil {
			return nil, nil, err
		}
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func buildBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Answer commands using long polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Listen(cmd.Context())
		},
	}
}

func buildBroadcastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast",
		Short: "Send one price and news update to every subscriber",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Broadcast(cmd.Context())
			logReport(log, report)
			return err
		},
	}
}

func buildScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Broadcast now and then every broadcast.interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer log.Sync()

			period, err := cfg.Broadcast.Period()
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			loop := &scheduler.Loop{
				Interval: period,
				Logger:   log.Named("scheduler"),
				Job: func(ctx context.Context) error {
					report, err := a.Broadcast(ctx)
					logReport(log, report)
					return err
				},
			}
			log.Info("broadcast schedule started", zap.Duration("interval", period))

			// A store that cannot be written would drift from reality with every run.
			return loop.Run(cmd.Context(), func(err error) bool {
				return errors.Is(err, subscriber.ErrPersistence)
			})
		},
	}
}

func buildSubscribersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribers",
		Short: "List the stored subscriber chat ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, closeStore, err := app.OpenStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			set, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"#", "Chat ID"})
			table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
			for i, id := range set.IDs() {
				table.Append([]string{strconv.Itoa(i + 1), strconv.FormatInt(id, 10)})
			}
			table.SetFooter([]string{"Total", strconv.Itoa(set.Len())})
			table.Render()
			return nil
		},
	}
}

func logReport(log *zap.Logger, r dispatch.Report) {
	log.Info("broadcast finished",
		zap.String("run_id", r.RunID),
		zap.Int("subscribers", r.Subscribers),
		zap.Bool("price_ok", r.PriceOK),
		zap.Bool("news_ok", r.NewsOK),
		zap.Bool("sent", r.Sent),
		zap.Int("delivered", r.Delivered),
		zap.Int("failed", r.Failed),
		zap.Int("removed", r.Removed),
	)
}
