package internal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/recall/internal/audio"
	"github.com/starford/recall/internal/ingest"
	"github.com/starford/recall/internal/memoryservice"
	"github.com/starford/recall/internal/reminder"
	"github.com/starford/recall/internal/sse"
	"github.com/starford/recall/internal/store"
	"github.com/starford/recall/internal/structure"
	"github.com/starford/recall/internal/transcribe"
)

const audioRoute = "/api/audio"

// components are the long-lived collaborators shared by every command.
type components struct {
	db     *store.DB
	audio  audio.Store
	broker *sse.Broker
	svc    *memoryservice.Service
}

func (c *components) Close() {
	c.broker.Close()
	_ = c.db.Close()
}

func newLogger(app *application) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func build(cfg *Config, logger *slog.Logger) (*components, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	audioStore, err := newAudioStore(&cfg.Audio)
	if err != nil {
		return nil, fmt.Errorf("init audio storage: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	var tr ingest.Transcriber
	var standalone memoryservice.Transcriber
	if tc := cfg.AI.Transcription(); tc.APIKey != "" {
		w := transcribe.NewWhisper(transcribe.Config{
			APIKey:   tc.APIKey,
			BaseURL:  tc.BaseURL,
			Model:    tc.TranscriptionModel,
			Language: cfg.AI.Language,
			Prompt:   cfg.AI.Prompt,
			Timeout:  cfg.AI.Timeout,
		}, audioStore)
		tr, standalone = w, w
	} else {
		logger.Warn("transcription disabled: no api key", slog.String("provider", cfg.AI.Provider))
	}

	var st structure.Structurer
	if sc := cfg.AI.Structuring(); sc.APIKey != "" {
		if cfg.AI.StructuringProvider == ProviderAnthropic {
			st = structure.NewAnthropic(structure.AnthropicConfig{
				APIKey: sc.APIKey, BaseURL: sc.BaseURL, Model: sc.ChatModel, Timeout: cfg.AI.Timeout,
			})
		} else {
			st = structure.NewOpenAI(structure.OpenAIConfig{
				APIKey: sc.APIKey, BaseURL: sc.BaseURL, Model: sc.ChatModel, Timeout: cfg.AI.Timeout,
			})
		}
	} else {
		logger.Warn("structuring disabled: memories will use the fallback summary",
			slog.String("provider", cfg.AI.StructuringProvider))
	}

	broker := sse.NewBroker(2 * time.Second)
	deriver := reminder.NewDeriver(db, logger)
	pipeline := ingest.New(tr, structure.NewClassifier(st, logger), db, deriver,
		ingest.WithNotifier(broker),
		ingest.WithLogger(logger),
	)

	svc := memoryservice.New(memoryservice.Deps{
		DB:          db,
		Audio:       audioStore,
		Pipeline:    pipeline,
		Transcriber: standalone,
		Deriver:     deriver,
		Notifier:    broker,
		Logger:      logger,
	}, memoryservice.Config{
		Location:  loc,
		WeekStart: reminder.ParseWeekday(cfg.Reminders.WeekStart),
	})

	return &components{db: db, audio: audioStore, broker: broker, svc: svc}, nil
}

func newAudioStore(cfg *AudioConfig) (audio.Store, error) {
	if cfg.Backend == AudioBackendS3 {
		return audio.NewS3(audio.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
			ProxyBaseURL:    audioRoute,
		})
	}
	return audio.NewFS(cfg.Dir, audioRoute)
}
