package main

import (
	"os"
	"strconv"
)

type config struct {
	port     string
	audioDir string

	storeBackend string
	postgresDSN  string

	analyzerKind string

	asrURL       string
	textScoreURL string
	asrPoolSize  int

	prosodyBaseURL string
	prosodyAPIKey  string
	prosodyPool    int

	narratorModel     string
	narratorMaxTokens int

	maxConcurrentLive int
}

func loadConfig() config {
	return config{
		port:     envStr("VOICEJOURNAL_PORT", "8000"),
		audioDir: envStr("AUDIO_DIR", "/tmp/voicejournal"),

		storeBackend: envStr("STORE_BACKEND", "memory"),
		postgresDSN:  envStr("POSTGRES_DSN", ""),

		analyzerKind: envStr("ANALYZER", "local"),

		asrURL:       envStr("ASR_URL", "http://localhost:9000"),
		textScoreURL: envStr("TEXT_SCORE_URL", "http://localhost:9100"),
		asrPoolSize:  envInt("ASR_POOL_SIZE", 50),

		prosodyBaseURL: envStr("PROSODY_API_URL", "https://api.hume.ai/v0/batch/jobs"),
		prosodyAPIKey:  envStr("PROSODY_API_KEY", ""),
		prosodyPool:    envInt("PROSODY_POOL_SIZE", 10),

		narratorModel:     envStr("NARRATOR_MODEL", "gpt-4o-mini"),
		narratorMaxTokens: envInt("NARRATOR_MAX_TOKENS", 500),

		maxConcurrentLive: envInt("MAX_CONCURRENT_LIVE", 100),
	}
}

func envStr(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}
