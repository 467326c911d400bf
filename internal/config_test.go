package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/starford/recall/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, DefaultOwner, cfg.Owner)
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, AuthModeDisabled, cfg.Mode)
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is empty")
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	require.Error(t, cfg.Validate())
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(25<<20), cfg.Audio.MaxUploadBytes())
	assert.Equal(t, "whisper-large-v3", cfg.AI.Transcription().TranscriptionModel)
}

func TestAIConfig_StructuringDefaultsToProvider(t *testing.T) {
	cfg := NewDefaultConfig().AI
	cfg.Provider = ProviderOpenAI
	cfg.StructuringProvider = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderOpenAI, cfg.StructuringProvider)
	assert.Equal(t, "gpt-4o", cfg.Structuring().ChatModel)

	cfg.StructuringProvider = ProviderAnthropic
	assert.NotEmpty(t, cfg.Structuring().ChatModel, "anthropic chat model missing")

	cfg.Provider = ProviderAnthropic
	assert.Error(t, cfg.Validate(), "anthropic cannot transcribe")
}

func TestAudioConfig_S3RequiresBucket(t *testing.T) {
	cfg := AudioConfig{Backend: AudioBackendS3, MaxUploadMB: 10}
	require.Error(t, cfg.Validate())
	cfg.S3 = S3Config{Bucket: "recall", Region: "us-east-1"}
	require.NoError(t, cfg.Validate())
}

func TestAppConfig_Timezone(t *testing.T) {
	cfg := NewDefaultConfig().App
	cfg.Timezone = "Mars/Olympus"
	require.Error(t, cfg.Validate())
	cfg.Timezone = "UTC"
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestInboxConfig_RequiresDirWhenEnabled(t *testing.T) {
	cfg := InboxConfig{Enabled: true}
	require.Error(t, cfg.Validate())
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	require.Error(t, cfg.Validate())
}

func TestLoadYAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("RECALL_TEST_GROQ_KEY", "gsk-test")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  timezone: UTC
  http:
    port: 9090
ai:
  provider: groq
  timeout: 30s
  groq:
    api_key: ${RECALL_TEST_GROQ_KEY}
reminders:
  week_start: sunday
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg := NewDefaultConfig()
	require.NoError(t, pkgconfig.Load(path, cfg))
	assert.Equal(t, 9090, cfg.App.HTTP.Port)
	assert.Equal(t, "gsk-test", cfg.AI.Groq.APIKey)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.AI.Groq.ChatModel, "defaults kept")
	assert.Equal(t, "sunday", cfg.Reminders.WeekStart)
}
