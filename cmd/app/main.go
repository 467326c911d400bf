package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/recall/internal"
	pkgconfig "github.com/starford/recall/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func backfill(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	report, err := internal.BackfillReminders(ctx, internal.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	fmt.Printf("scanned %d, created %d, skipped %d, failed %d\n",
		report.Scanned, report.Created, report.Skipped, report.Failed)
	if report.Failed > 0 {
		return errors.New("some reminders could not be created")
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func ingestFile(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: recall ingest <file>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := internal.IngestFile(ctx, path, cmd.String("owner"),
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func main() {
	cmd := &cli.Command{
		Name:   "recall",
		Usage:  "Voice memory capture: transcription, classification and reminders",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "backfill-reminders",
				Usage:  "Create reminders missing from memories that need one",
				Action: backfill,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:      "ingest",
				Usage:     "Ingest a local recording",
				ArgsUsage: "<file>",
				Action:    ingestFile,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Owner of the new memory (defaults to auth.owner)",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
