package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/recall/internal/audio"
	"github.com/starford/recall/internal/ingest"
	"github.com/starford/recall/internal/mcpserver"
	"github.com/starford/recall/internal/reminder"
)

// BackfillReminders derives reminders missing from memories that need one.
func BackfillReminders(ctx context.Context, opts ...Option) (reminder.BackfillReport, error) {
	app, err := newApplication(opts)
	if err != nil {
		return reminder.BackfillReport{}, err
	}
	logger := newLogger(app)

	c, err := build(app.config, logger)
	if err != nil {
		return reminder.BackfillReport{}, err
	}
	defer c.Close()

	return c.svc.BackfillReminders(ctx)
}

// ServeMCP runs the MCP server on stdio acting as the configured owner.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := newLogger(app)

	c, err := build(app.config, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting", slog.String("owner", app.config.Auth.Owner))
	return mcpserver.New(c.svc, app.config.Auth.Owner).ServeStdio()
}

// IngestFile stores a local recording and runs the pipeline over it.
func IngestFile(ctx context.Context, path, owner string, opts ...Option) (*ingest.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(app)

	if !audio.IsAudioFile(path) {
		return nil, fmt.Errorf("unsupported audio file: %s", path)
	}
	if owner == "" {
		owner = app.config.Auth.Owner
	}

	c, err := build(app.config, logger)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	obj, err := c.svc.UploadAudio(ctx, name, audio.ContentType(name), f)
	if err != nil {
		return nil, err
	}
	return c.svc.Ingest(ctx, owner, obj.Ref)
}
