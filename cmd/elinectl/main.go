package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"eline/internal/analytics"
	"eline/internal/auth"
	"eline/internal/config"
	"eline/internal/logger"
	"eline/internal/store/postgres"
	"eline/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	cfg  config.Config
	log  *zap.Logger
	pool *pgxpool.Pool
}

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, ServiceName: "elinectl", Development: true})
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{cfg: cfg, log: log}
	defer a.close()

	root := &cobra.Command{
		Use:           "elinectl",
		Short:         "Operator commands for the eline queue service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(a.migrateCommand(), a.seedCommand(), a.analyticsCommand(), a.adminCommand())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		a.close()
		os.Exit(1)
	}
}

func (a *app) store(ctx context.Context) (*postgres.Store, error) {
	if a.pool == nil {
		if a.cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DB_DSN is required")
		}
		pool, err := pgxpool.New(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.pool = pool
	}
	return postgres.NewStore(a.pool, postgres.Options{BatchLimit: a.cfg.SweepBatchSize}), nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.store(cmd.Context()); err != nil {
				return err
			}
			applied, err := postgres.Migrate(cmd.Context(), a.pool, migrations.Files)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				a.log.Info("schema is up to date")
				return nil
			}
			a.log.Info("migrations applied", zap.Strings("files", applied))
			return nil
		},
	}
}

func (a *app) seedCommand() *cobra.Command {
	seedCmd := &cobra.Command{Use: "seed", Short: "Seed data"}

	var password string
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Create the demo salon with its standard services",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			business, created, err := seedDemo(cmd.Context(), st, password)
			if err != nil {
				return err
			}
			if !created {
				a.log.Info("demo business already exists", zap.String("business_id", business.ID))
				return nil
			}
			a.log.Info("demo business created",
				zap.String("business_id", business.ID),
				zap.String("subdomain", business.Subdomain),
				zap.String("barber_code", business.BarberCode))
			return nil
		},
	}
	demoCmd.Flags().StringVar(&password, "password", "demo1234", "barber console password for the demo salon")
	seedCmd.AddCommand(demoCmd)
	return seedCmd
}

func (a *app) analyticsCommand() *cobra.Command {
	analyticsCmd := &cobra.Command{Use: "analytics", Short: "Analytics maintenance"}

	var (
		days         int
		includeEmpty bool
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Rebuild the daily rollups for the last days days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			generator := analytics.NewGenerator(st, clockwork.NewRealClock(), a.cfg.Location(), a.log)
			rows, err := generator.Backfill(cmd.Context(), days, !includeEmpty)
			a.log.Info("analytics generated", zap.Int("days", days), zap.Int("rows", rows))
			return err
		},
	}
	generateCmd.Flags().IntVar(&days, "days", 30, "number of days to rebuild, ending today")
	generateCmd.Flags().BoolVar(&includeEmpty, "include-empty", false, "write rows for days without customers")
	analyticsCmd.AddCommand(generateCmd)
	return analyticsCmd
}

func (a *app) adminCommand() *cobra.Command {
	adminCmd := &cobra.Command{Use: "admin", Short: "Platform admin accounts"}

	var email, password string
	ensureCmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create the default super admin when no admin exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			clock := clockwork.NewRealClock()
			service := auth.NewService(st, auth.NewTokens(a.cfg.JWTSecret, a.cfg.JWTTTL, clock), clock, a.log)
			created, err := service.EnsureDefaultAdmin(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if created {
				a.log.Info("default admin created", zap.String("email", email))
			} else {
				a.log.Info("an admin already exists, nothing to do")
			}
			return nil
		},
	}
	ensureCmd.Flags().StringVar(&email, "email", a.cfg.AdminEmail, "admin email")
	ensureCmd.Flags().StringVar(&password, "password", a.cfg.AdminPassword, "admin password")
	adminCmd.AddCommand(ensureCmd)
	return adminCmd
}
