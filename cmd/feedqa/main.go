// Package main provides the feedqa command-line tool: subscribe to RSS/Atom
// feeds, read their articles and ask questions about them.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"feedqa/internal/config"
	"feedqa/internal/crawler"
	"feedqa/internal/crawler/parsers"
	"feedqa/internal/inference"
	"feedqa/internal/logger"
	"feedqa/internal/reader"
	"feedqa/internal/store"
)

var (
	configFile string
	logLevel   string
)

// app holds the dependencies shared by every subcommand. Storage and the
// reader are opened on first use, so commands that never touch the
// database do not create it.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	client *crawler.Client
	repo   store.Repository
	reader *reader.Reader
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "feedqa",
	Short: "Read RSS/Atom feeds and ask questions about their articles",
	Long: `feedqa fetches RSS 2.0 and Atom feeds (falling back to a CORS proxy
when the direct request fails), keeps them in a local SQLite database and
answers questions about an article using an extractive QA model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		current = a

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML configuration file (default configs/feedqa.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(addCmd, listCmd, articlesCmd, showCmd, removeCmd, parseCmd, askCmd, statusCmd, serveCmd)
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

// execute runs the selected command and closes the database afterwards,
// also when the command failed.
func execute() error {
	err := rootCmd.Execute()

	if current != nil {
		if closeErr := current.Close(); closeErr != nil {
			current.log.Error("failed to close database", "error", closeErr)

			return errors.Join(err, closeErr)
		}
	}

	return err
}

func newApp() (*app, error) {
	envErr := godotenv.Load()

	cfg, err := config.LoadOrDefault(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if logLevel != "" {
		log.SetLevel(logLevel)
	}

	slog.SetDefault(log.Slog())

	if envErr != nil {
		log.Debug("no .env file found, using environment variables")
	}

	log.Debug("configuration loaded", "config", cfg.String())

	scraper := crawler.NewScraperWithConfig(&cfg.Fetcher, crawler.WithLogger(log.With("component", "scraper")))
	client := crawler.NewClientWithDeps(scraper, parsers.NewParser(), log.With("component", "crawler"))

	return &app{cfg: cfg, log: log, client: client}, nil
}

// Reader opens the feed database and builds the reader on first call.
func (a *app) Reader() (*reader.Reader, error) {
	if a.reader != nil {
		return a.reader, nil
	}

	repo, err := store.NewSQLite(a.cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	apiKey, err := a.cfg.Inference.APIKey()
	if err != nil {
		// Feeds still work without a key; questions fail with a load error.
		a.log.Warn("question answering unavailable", "error", err)
	}

	loaderOpts := []inference.GeminiOption{inference.WithLogger(a.log.With("component", "inference"))}
	if a.cfg.Inference.BaseURL != "" {
		loaderOpts = append(loaderOpts, inference.WithBaseURL(a.cfg.Inference.BaseURL))
	}

	a.repo = repo
	a.reader = reader.New(
		a.client,
		repo,
		inference.NewGeminiLoader(apiKey, loaderOpts...),
		a.cfg.Inference.Model,
		reader.WithLogger(a.log.With("component", "reader")),
		reader.WithMaxContext(a.cfg.Inference.MaxContextChars),
	)

	return a.reader, nil
}

// Close closes the database when it was opened.
func (a *app) Close() error {
	if a.repo == nil {
		return nil
	}

	return a.repo.Close()
}
