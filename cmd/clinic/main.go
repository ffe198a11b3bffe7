package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agastya-health/clinic-admin/internal/adapters/cache"
	"github.com/agastya-health/clinic-admin/internal/adapters/events"
	"github.com/agastya-health/clinic-admin/internal/domain/providers"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/clients/postgres"
	redisclient "github.com/agastya-health/clinic-admin/internal/infrastructure/clients/redis"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/observability"
	"github.com/agastya-health/clinic-admin/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic",
		Short:         "Clinic administration backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// loadConfig reads configuration and sets up the global logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)
	return cfg, nil
}

// openDatabase connects to PostgreSQL and applies pending migrations when asked to
func openDatabase(ctx context.Context, cfg *config.Config, migrate bool) (*postgres.Client, error) {
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if migrate {
		applied, err := postgres.NewMigrator(pgClient).Up(ctx)
		if err != nil {
			pgClient.Close()
			return nil, err
		}
		log.Info().Int("applied", applied).Msg("Database migrations complete")
	}
	return pgClient, nil
}

// redisStack bundles the Redis-backed providers. All fields are nil when Redis is off.
type redisStack struct {
	client   *redisclient.Client
	cache    providers.CacheProvider
	eventBus providers.EventBus
}

func (r *redisStack) Close() {
	if r.eventBus != nil {
		if err := r.eventBus.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing event bus")
		}
	}
	if r.client != nil {
		if err := r.client.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing Redis client")
		}
	}
}

// openRedis connects to Redis when enabled. Failure is not fatal: the service
// runs without caching and live updates.
func openRedis(ctx context.Context, cfg *config.Config) *redisStack {
	stack := &redisStack{}
	if !cfg.Redis.Enabled {
		log.Info().Msg("Redis disabled; caching and live updates are off")
		return stack
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := redisclient.NewClient(connectCtx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis client; continuing without it")
		return stack
	}

	stack.client = client
	stack.cache = cache.NewRedisAdapter(client)
	stack.eventBus = events.NewRedisEventBus(client)
	return stack
}
