package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/db"
	"github.com/jonathan/cv-tailor/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing the tailoring workflows, including the two-phase analyze/confirm/tailor flow backed by the database.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		settings.Port = servePort
	}

	var database *db.DB
	if settings.DatabaseURL != "" {
		database, err = db.Connect(context.Background(), settings.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(context.Background()); err != nil {
			return err
		}
	}

	srv := server.New(server.Config{
		Port:               settings.Port,
		JWTSecret:          settings.JWTSecret,
		JWTExpirationHours: settings.JWTExpirationHours,
	}, buildDeps(settings), database)

	return srv.Start()
}
