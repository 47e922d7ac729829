package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"github.com/terraincognita07/liberate/internal/analysis"
	"github.com/terraincognita07/liberate/internal/api"
	"github.com/terraincognita07/liberate/internal/cli"
	"github.com/terraincognita07/liberate/internal/companion"
	"github.com/terraincognita07/liberate/internal/config"
	"github.com/terraincognita07/liberate/internal/db"
	"github.com/terraincognita07/liberate/internal/docstore"
	"github.com/terraincognita07/liberate/internal/localstore"
	"github.com/terraincognita07/liberate/internal/logging"
	"github.com/terraincognita07/liberate/internal/services"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "liberate",
		Short:        "Wellness journal sync service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(resetPasswordCmd())
	rootCmd.AddCommand(verifyEmailCmd())
	rootCmd.AddCommand(watchCmd())
	return rootCmd
}

func initLogging(cfg *config.Config) {
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

func openDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	database, err := db.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("database init failed: %w", err)
	}
	closeDatabase := func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return database, closeDatabase, nil
}

func openLocalStore(cfg *config.Config) (localstore.Store, error) {
	store, err := localstore.Open(localstore.Options{
		Backend:  cfg.LocalStore.Backend,
		Path:     cfg.LocalStore.Path,
		RedisURL: cfg.LocalStore.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("local store init failed: %w", err)
	}
	return store, nil
}

// watchLocalStoreOptions keeps watch off the server's badger directory,
// which badger locks for a single process.
func watchLocalStoreOptions(cfg *config.Config) localstore.Options {
	options := localstore.Options{
		Backend:  cfg.LocalStore.Backend,
		Path:     cfg.LocalStore.Path,
		RedisURL: cfg.LocalStore.RedisURL,
	}
	if strings.EqualFold(strings.TrimSpace(options.Backend), localstore.BackendBadger) {
		options.Path = strings.TrimRight(options.Path, `/\`) + "-watch"
	}
	return options
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			initLogging(cfg)
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	location := cfg.Location()
	time.Local = location

	database, closeDatabase, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase()

	local, err := openLocalStore(cfg)
	if err != nil {
		return err
	}
	defer local.Close()

	repositories := db.NewRepositories(database)
	handler, err := api.NewHandler(api.Dependencies{
		Users:     repositories.Users,
		Documents: docstore.NewHub(repositories.Documents),
		Local:     local,
		Analysis: analysis.NewClient(analysis.Config{
			BaseURL: cfg.Analysis.BaseURL,
			Timeout: cfg.Analysis.Timeout,
		}),
		Companion: companion.NewClient(companion.Config{
			BaseURL:           cfg.Companion.BaseURL,
			APIKey:            cfg.Companion.APIKey,
			Model:             cfg.Companion.Model,
			SystemPrompt:      cfg.Companion.SystemPrompt,
			Timeout:           cfg.Companion.Timeout,
			RequestsPerMinute: cfg.Companion.RequestsPerMin,
		}),
		Affirmations: services.NewAffirmationService(cfg.Affirmation.URL, cfg.Affirmation.Timeout),
		SecretKey:    cfg.Security.SecretKey,
		TokenTTL:     cfg.Security.TokenTTL,
		CookieSecure: cfg.Security.CookieSecure,
		Location:     location,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := newFiberApp(handler)

	sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		handler.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	logging.Info().
		Str("port", cfg.Server.Port).
		Str("db", cfg.Database.Path).
		Str("local_store", cfg.LocalStore.Backend).
		Str("tz", location.String()).
		Msg("liberate listening")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func newFiberApp(handler *api.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Liberate",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: logging.Writer()}))
	app.Use(compress.New(compress.Config{Next: api.SkipStream}))

	api.RegisterRoutes(app, handler)
	return app
}

func resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Issue a temporary password for an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadUnvalidated()
			if err != nil {
				return err
			}
			initLogging(cfg)
			database, closeDatabase, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer closeDatabase()
			return cli.RunResetPasswordCommand(db.NewUserRepository(database), email, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func verifyEmailCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Mark an account's email as verified",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadUnvalidated()
			if err != nil {
				return err
			}
			initLogging(cfg)
			database, closeDatabase, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer closeDatabase()
			auth := services.NewAuthService(db.NewUserRepository(database), nil)
			return cli.RunVerifyEmailCommand(auth, email, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func watchCmd() *cobra.Command {
	var email, password string
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sign in and print the day log as it changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadUnvalidated()
			if err != nil {
				return err
			}
			initLogging(cfg)

			if password == "" {
				password, err = cli.PromptPassword(cmd.OutOrStdout(), os.Stdin)
				if err != nil {
					return err
				}
			}

			database, closeDatabase, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer closeDatabase()
			local, err := localstore.Open(watchLocalStoreOptions(cfg))
			if err != nil {
				return fmt.Errorf("local store init failed: %w", err)
			}
			defer local.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			repositories := db.NewRepositories(database)
			return cli.RunWatchCommand(ctx, cli.WatchOptions{
				Auth:         services.NewAuthService(repositories.Users, nil),
				Documents:    docstore.NewHub(repositories.Documents),
				Local:        local,
				Email:        email,
				Password:     password,
				Out:          cmd.OutOrStdout(),
				PollInterval: interval,
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "how often to check the database for changes made by the server")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
