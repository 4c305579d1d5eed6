// Package config loads the runtime configuration from environment
// variables. A .env file, when present, is loaded by the entrypoint before
// this package reads anything.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/courtlive/courtd/pkg/llm"
	"github.com/courtlive/courtd/pkg/orchestrator"
	"github.com/courtlive/courtd/pkg/recorder"
	"github.com/courtlive/courtd/pkg/voteguard"
)

// Config is the full runtime configuration.
type Config struct {
	// HTTPAddr is the gateway listen address.
	HTTPAddr string

	// DatabaseURL selects the store backend: empty means in-memory.
	DatabaseURL string

	// TrustProxy makes the gateway honor X-Forwarded-For when identifying
	// vote clients.
	TrustProxy bool

	LLM           llm.Config
	TTSProvider   string
	RecordingsDir string

	Orchestrator orchestrator.Config
	VoteGuard    voteguard.Config

	// Replay settings for the replay CLI.
	ReplayFile  string
	ReplaySpeed float64
}

// Load reads every setting from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		TrustProxy:    getEnvBool("TRUST_PROXY", false),
		TTSProvider:   getEnv("TTS_PROVIDER", "noop"),
		RecordingsDir: getEnv("RECORDINGS_DIR", recorder.DefaultRecordingsDir),
		ReplayFile:    os.Getenv("REPLAY_FILE"),
	}

	var err error
	if cfg.LLM, err = loadLLM(); err != nil {
		return nil, err
	}
	if cfg.Orchestrator, err = loadOrchestrator(); err != nil {
		return nil, err
	}
	if cfg.VoteGuard, err = loadVoteGuard(); err != nil {
		return nil, err
	}
	if cfg.ReplaySpeed, err = getEnvFloat("REPLAY_SPEED", 1); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadLLM() (llm.Config, error) {
	out := llm.Config{
		APIKey:         os.Getenv("OPENROUTER_API_KEY"),
		BaseURL:        getEnv("OPENROUTER_BASE_URL", llm.DefaultBaseURL),
		ForceMock:      getEnvBool("LLM_MOCK", false),
		RequestTimeout: 30 * time.Second,
	}
	if models := os.Getenv("LLM_MODELS"); models != "" {
		for _, m := range strings.Split(models, ",") {
			if m = strings.TrimSpace(m); m != "" {
				out.Models = append(out.Models, m)
			}
		}
	}
	var err error
	if out.TokenCostPer1K, err = getEnvFloat("TOKEN_COST_PER_1K_USD", 0); err != nil {
		return llm.Config{}, err
	}
	return out, nil
}

func loadOrchestrator() (orchestrator.Config, error) {
	out := orchestrator.DefaultConfig()

	caps := &out.RoleCaps
	for _, binding := range []struct {
		key  string
		dest *int
	}{
		{"ROLE_MAX_TOKENS_DEFAULT", &caps.Default},
		{"ROLE_MAX_TOKENS_JUDGE", &caps.Judge},
		{"ROLE_MAX_TOKENS_PROSECUTOR", &caps.Prosecutor},
		{"ROLE_MAX_TOKENS_DEFENSE", &caps.Defense},
		{"ROLE_MAX_TOKENS_WITNESS", &caps.Witness},
		{"ROLE_MAX_TOKENS_BAILIFF", &caps.Bailiff},
	} {
		val, err := getEnvInt(binding.key, *binding.dest)
		if err != nil {
			return orchestrator.Config{}, err
		}
		*binding.dest = val
	}

	var err error
	wc := &out.WitnessCap
	if wc.MaxTokens, err = getEnvInt("WITNESS_MAX_TOKENS", wc.MaxTokens); err != nil {
		return orchestrator.Config{}, err
	}
	if wc.MaxSeconds, err = getEnvInt("WITNESS_MAX_SECONDS", wc.MaxSeconds); err != nil {
		return orchestrator.Config{}, err
	}
	if wc.TokensPerSecond, err = getEnvInt("WITNESS_TOKENS_PER_SECOND", wc.TokensPerSecond); err != nil {
		return orchestrator.Config{}, err
	}
	wc.TruncationMarker = getEnv("WITNESS_TRUNCATION_MARKER", wc.TruncationMarker)

	if out.RecapCadence, err = getEnvInt("JUDGE_RECAP_CADENCE", out.RecapCadence); err != nil {
		return orchestrator.Config{}, err
	}
	if out.RecapCadence < 1 {
		return orchestrator.Config{}, fmt.Errorf("JUDGE_RECAP_CADENCE must be >= 1, got %d", out.RecapCadence)
	}
	return out, nil
}

func loadVoteGuard() (voteguard.Config, error) {
	out := voteguard.DefaultConfig()
	maxVotes, err := getEnvInt("VOTE_MAX_PER_WINDOW", out.MaxVotesPerWindow)
	if err != nil {
		return voteguard.Config{}, err
	}
	out.MaxVotesPerWindow = maxVotes

	for _, binding := range []struct {
		key  string
		dest *time.Duration
	}{
		{"VOTE_RATE_WINDOW_MS", &out.RateWindow},
		{"VOTE_DUPLICATE_WINDOW_MS", &out.DuplicateWindow},
	} {
		ms, err := getEnvInt(binding.key, int(binding.dest.Milliseconds()))
		if err != nil {
			return voteguard.Config{}, err
		}
		*binding.dest = time.Duration(ms) * time.Millisecond
	}
	return out, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}
