package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/krshsl/praxis/feedback/repository"
	"github.com/krshsl/praxis/feedback/services"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "praxis-feedback",
	Short:         "Interview feedback and performance tracking service",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, db, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(db)

		repo := repository.NewGORMRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		slog.Info("Database migrated")

		if config.Database.Seed {
			if err := seed(cmd.Context(), repo); err != nil {
				slog.Error("Failed to seed database", "error", err)
			}
		}

		server := services.NewServer(config, db)
		if err := server.InitializeServices(cmd.Context()); err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		return server.Start(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := repository.NewGORMRepository(db).AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		slog.Info("Database migrated")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo accounts and sample interviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(db)
		return seed(cmd.Context(), repository.NewGORMRepository(db))
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Apply user stats for stored feedback whose update never committed",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, db, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(db)

		repo := repository.NewGORMRepository(db)
		updater := services.NewStatsUpdater(repo, config.Stats.MaxAttempts)
		reconciler := services.NewStatsReconciler(repo, updater, config.Stats.ReconcileGrace, config.Stats.ReconcileBatch)

		applied, err := reconciler.ReconcilePending(cmd.Context())
		if err != nil {
			return fmt.Errorf("reconcile failed after %d records: %w", applied, err)
		}
		slog.Info("Reconcile finished", "applied", applied)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file overriding configuration defaults")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func main() {
	// Setup structured logging with JSON format
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// .env values become process env so the BindEnv keys pick them up
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// setup loads configuration and opens the database
func setup() (*services.Config, *gorm.DB, error) {
	config, err := services.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if config.Database.URL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(config.Database.URL), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(config.Database.LogLevel)),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(config.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	slog.Info("Connected to database")
	return config, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func seed(ctx context.Context, repo *repository.GORMRepository) error {
	catalog, err := services.DefaultTechCatalog()
	if err != nil {
		return err
	}
	return services.NewDatabaseSeeder(repo, catalog).SeedDatabase(ctx)
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "info":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}
