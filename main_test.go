package main

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{
		"OPENAI_API_KEY":               "sk-test",
		"PINECONE_API_KEY":             "pc-test",
		"PINECONE_INDEX_HOST":          "pmc-abc.svc.pinecone.io",
		"TELEGRAM_AUTHORIZED_USER_IDS": "10 20",
	}}))

	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.InDelta(t, 0.3, cfg.AnswerTemperature, 1e-6)
	assert.InDelta(t, 0.1, cfg.DetectTemperature, 1e-6)
	assert.Equal(t, 10, cfg.DetectMaxTokens)
	assert.Equal(t, 384, cfg.EmbeddingDimensions)
	assert.Equal(t, "https://webadmin.pmc.gov.in/api/", cfg.BackendAPIPrefix)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []int64{10, 20}, cfg.TelegramAuthorizedUserIDs)
}

func TestConfigRequiresKeys(t *testing.T) {
	cfg := Config{}
	err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{
		"PINECONE_API_KEY": "pc-test",
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestRootCommand(t *testing.T) {
	root := rootCmd()

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	ingest, _, err := root.Find([]string{"ingest"})
	require.NoError(t, err)
	assert.Equal(t, "data/urls.txt", ingest.Flags().Lookup("urls").DefValue)
}
