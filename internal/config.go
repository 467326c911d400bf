package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Audio backends.
const (
	AudioBackendFS = "fs"
	AudioBackendS3 = "s3"
)

// AI providers.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultOwner is the identity used when no identity system is configured.
const DefaultOwner = "00000000-0000-0000-0000-000000000000"

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Audio     AudioConfig       `yaml:"audio"`
	AI        AIConfig          `yaml:"ai"`
	Inbox     InboxConfig       `yaml:"inbox"`
	Reminders RemindersConfig   `yaml:"reminders"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.SQLite, &c.Audio, &c.AI, &c.Inbox, &c.Reminders, &c.Auth} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// Timezone is the IANA name of the user's calendar.
	Timezone string `yaml:"timezone"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
	)
}

// Location resolves Timezone. Empty means the host's local zone.
func (c *ApplicationConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AudioConfig selects where recordings are stored.
type AudioConfig struct {
	Backend     string   `yaml:"backend"`
	Dir         string   `yaml:"dir"`
	MaxUploadMB int64    `yaml:"max_upload_mb"`
	S3          S3Config `yaml:"s3"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *AudioConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Validate validates the audio configuration.
func (c *AudioConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = AudioBackendFS
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(AudioBackendFS, AudioBackendS3)),
		validation.Field(&c.Dir, validation.When(c.Backend == AudioBackendFS, validation.Required)),
		validation.Field(&c.MaxUploadMB, validation.Min(int64(1))),
	); err != nil {
		return err
	}
	if c.Backend == AudioBackendS3 {
		return c.S3.Validate()
	}
	return nil
}

// S3Config holds S3-compatible bucket settings.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

// Validate validates the S3 configuration.
func (c *S3Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.Region, validation.Required),
	)
}

// AIConfig selects the transcription and structuring providers.
type AIConfig struct {
	// Provider drives transcription.
	Provider string `yaml:"provider"`
	// StructuringProvider defaults to Provider.
	StructuringProvider string        `yaml:"structuring_provider"`
	Language            string        `yaml:"language"`
	Prompt              string        `yaml:"prompt"`
	Timeout             time.Duration `yaml:"timeout"`

	Groq      ProviderConfig `yaml:"groq"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
}

// ProviderConfig holds credentials and model names for one provider.
// An empty APIKey disables the provider.
type ProviderConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	TranscriptionModel string `yaml:"transcription_model"`
	ChatModel          string `yaml:"chat_model"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	if c.StructuringProvider == "" {
		c.StructuringProvider = c.Provider
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(ProviderGroq, ProviderOpenAI)),
		validation.Field(&c.StructuringProvider, validation.In(ProviderGroq, ProviderOpenAI, ProviderAnthropic)),
		validation.Field(&c.Timeout, validation.Min(time.Second)),
	)
}

// Transcription returns the settings of the transcription provider.
func (c *AIConfig) Transcription() ProviderConfig {
	if c.Provider == ProviderOpenAI {
		return c.OpenAI
	}
	return c.Groq
}

// Structuring returns the settings of the structuring provider.
func (c *AIConfig) Structuring() ProviderConfig {
	switch c.StructuringProvider {
	case ProviderOpenAI:
		return c.OpenAI
	case ProviderAnthropic:
		return c.Anthropic
	}
	return c.Groq
}

// InboxConfig controls the drop-folder watcher.
type InboxConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	Owner   string        `yaml:"owner"`
	Settle  time.Duration `yaml:"settle"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Owner, validation.When(c.Enabled, validation.Required)),
	)
}

// RemindersConfig controls reminder grouping.
type RemindersConfig struct {
	WeekStart string `yaml:"week_start"`
}

// Validate validates the reminders configuration.
func (c *RemindersConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WeekStart, validation.In("monday", "sunday")),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
//
// Owner is the identity every accepted request acts as.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
	Owner string `yaml:"owner"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if c.Owner == "" {
		c.Owner = DefaultOwner
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

var errNoConfig = errors.New("config is required")

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./recall.db",
		},
		Audio: AudioConfig{
			Backend:     AudioBackendFS,
			Dir:         "./data/audio",
			MaxUploadMB: 25,
		},
		AI: AIConfig{
			Provider:            ProviderGroq,
			StructuringProvider: ProviderGroq,
			Language:            "en",
			Prompt:              "This is a voice note in English.",
			Timeout:             60 * time.Second,
			Groq: ProviderConfig{
				BaseURL:            "https://api.groq.com/openai/v1",
				TranscriptionModel: "whisper-large-v3",
				ChatModel:          "llama-3.1-8b-instant",
			},
			OpenAI: ProviderConfig{
				TranscriptionModel: "whisper-1",
				ChatModel:          "gpt-4o",
			},
			Anthropic: ProviderConfig{
				ChatModel: "claude-3-5-haiku-latest",
			},
		},
		Inbox: InboxConfig{
			Dir:    "./data/inbox",
			Owner:  DefaultOwner,
			Settle: time.Second,
		},
		Reminders: RemindersConfig{
			WeekStart: "monday",
		},
		Auth: AuthConfig{
			Mode:  AuthModeDisabled,
			Owner: DefaultOwner,
		},
	}
}
