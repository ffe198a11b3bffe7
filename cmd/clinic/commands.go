package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agastya-health/clinic-admin/internal/adapters/database"
	"github.com/agastya-health/clinic-admin/internal/application/services"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/observability"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			pgClient, err := openDatabase(commandContext(cmd), cfg, true)
			if err != nil {
				return err
			}
			return pgClient.Close()
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark appointments that already ended as completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			location, err := cfg.Clinic.Location()
			if err != nil {
				return err
			}

			pgClient, err := openDatabase(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer pgClient.Close()

			// Publishing lets a running server drop its cached availability.
			rds := openRedis(ctx, cfg)
			defer rds.Close()

			metrics, err := observability.InitMetrics()
			if err != nil {
				return fmt.Errorf("failed to initialize metrics: %w", err)
			}

			sweeper := services.NewExpirySweeper(database.NewAppointmentAdapter(pgClient), rds.eventBus, metrics, location)
			result, err := sweeper.Sweep(ctx)
			if err != nil {
				return err
			}

			log.Info().Int("updated", result.Updated).Msg("Expired appointments updated")
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d appointment(s)\n", result.Updated)
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
