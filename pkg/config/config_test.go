package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 4, cfg.Work.QuestionCount)
	assert.Equal(t, 3, cfg.Prompts.MaxSystemPerSubject)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "qc_session", cfg.Session.CookieName)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORK_QUESTION_COUNT", "6")
	t.Setenv("PROMPTS_MAX_SYSTEM_PER_SUBJECT", "5")
	t.Setenv("SESSION_TTL", "48h")
	t.Setenv("ALLOWED_ORIGINS", "https://qc.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Work.QuestionCount)
	assert.Equal(t, 5, cfg.Prompts.MaxSystemPerSubject)
	assert.Equal(t, 48*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"https://qc.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("WORK_QUESTION_COUNT", "0")
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Work.QuestionCount)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.TTL)
}
