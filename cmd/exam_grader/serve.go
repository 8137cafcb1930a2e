package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-grader/internal/config"
	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		port       int
		migrate    bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start an HTTP server that exposes the exam grading REST API.

Configuration comes from the environment (DATABASE_URL, GEMINI_API_KEY, JWT_SECRET, UPLOAD_DIR, ...).
A JSON file given with --server-config fills the values the environment leaves unset.
Correction and chatbot endpoints are disabled when GEMINI_API_KEY is not set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewServerConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if migrate {
				if err := runMigrations(ctx, cfg.DatabaseURL); err != nil {
					return err
				}
			}

			srv, err := server.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			return srv.Start()
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "Port to listen on (overrides PORT)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply the database schema before serving")
	cmd.Flags().StringVar(&configPath, "server-config", "", "JSON server configuration file")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  `Create the tables the server needs in the database named by DATABASE_URL. Running it twice is harmless.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewServerConfig(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := runMigrations(ctx, cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date") //nolint:errcheck
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "server-config", "", "JSON server configuration file")
	return cmd
}

func runMigrations(ctx context.Context, databaseURL string) error {
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Printf("[migrate] schema applied")
	return nil
}
