package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Completion.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Completion.Model)
	assert.Equal(t, "sk-test", cfg.Selected().APIKey)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(64<<10), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, "session_id", cfg.Session.CookieName)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.RateLimit.Requests)
	assert.Equal(t, time.Second, cfg.DedupWindow)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadProviderFromEnv(t *testing.T) {
	t.Setenv("COMPLETION_PROVIDER", ProviderGemini)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("APP_SESSION_MAX_SESSIONS", "3")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.Completion.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Completion.Model)
	assert.Equal(t, "gemini-key", cfg.Selected().APIKey)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 3, cfg.Session.MaxSessions)
}

func TestLoadExplicitModel(t *testing.T) {
	t.Setenv("COMPLETION_PROVIDER", ProviderOpenRouter)
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("COMPLETION_MODEL", "anthropic/claude-3.5-haiku")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3.5-haiku", cfg.Completion.Model)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("COMPLETION_PROVIDER", "llamafile")

	_, err := Load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported completion provider")
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: 8080, MaxBodyBytes: 1024},
			Completion: CompletionConfig{Provider: ProviderOpenAI},
			OpenAI:     ProviderConfig{APIKey: "k"},
			Session:    SessionConfig{IdleTimeout: time.Minute, CleanupInterval: time.Minute, MaxSessions: 1},
			RateLimit:  RateLimitConfig{Enabled: true, Requests: 1, Window: time.Second},
		}
	}
	require.NoError(t, validateConfig(valid()))

	cases := map[string]func(*Config){
		"port":          func(c *Config) { c.Server.Port = 0 },
		"body size":     func(c *Config) { c.Server.MaxBodyBytes = 0 },
		"idle timeout":  func(c *Config) { c.Session.IdleTimeout = 0 },
		"max sessions":  func(c *Config) { c.Session.MaxSessions = 0 },
		"rate requests": func(c *Config) { c.RateLimit.Requests = 0 },
		"rate window":   func(c *Config) { c.RateLimit.Window = 0 },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(cfg)
		assert.Error(t, validateConfig(cfg), name)
	}

	disabled := valid()
	disabled.RateLimit = RateLimitConfig{Enabled: false}
	assert.NoError(t, validateConfig(disabled))
}
