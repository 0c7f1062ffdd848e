package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETCHAT_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETCHAT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Data ──
	setStr(&cfg.Data.SnapshotURL, "MARKETCHAT_DATA_SNAPSHOT_URL")
	setDuration(&cfg.Data.FetchTimeout, "MARKETCHAT_DATA_FETCH_TIMEOUT")
	setDuration(&cfg.Data.CacheTTL, "MARKETCHAT_DATA_CACHE_TTL")

	// ── LLM ──
	setStr(&cfg.LLM.Provider, "MARKETCHAT_LLM_PROVIDER")
	setStr(&cfg.LLM.BaseURL, "MARKETCHAT_LLM_BASE_URL")
	setStr(&cfg.LLM.APIKey, "MARKETCHAT_LLM_API_KEY")
	setStr(&cfg.LLM.Model, "MARKETCHAT_LLM_MODEL")
	setInt(&cfg.LLM.MaxTokens, "MARKETCHAT_LLM_MAX_TOKENS")
	setFloat64(&cfg.LLM.Temperature, "MARKETCHAT_LLM_TEMPERATURE")
	setDuration(&cfg.LLM.Timeout, "MARKETCHAT_LLM_TIMEOUT")

	// ── Relevance ──
	setStr(&cfg.Relevance.KeywordsPath, "MARKETCHAT_RELEVANCE_KEYWORDS_PATH")
	setInt(&cfg.Relevance.Limit, "MARKETCHAT_RELEVANCE_LIMIT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MARKETCHAT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MARKETCHAT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETCHAT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETCHAT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETCHAT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETCHAT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETCHAT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MARKETCHAT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETCHAT_S3_REGION")
	setStr(&cfg.S3.AccessKey, "MARKETCHAT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETCHAT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETCHAT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETCHAT_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "MARKETCHAT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETCHAT_SERVER_CORS_ORIGINS")
	setDuration(&cfg.Server.ShutdownTimeout, "MARKETCHAT_SERVER_SHUTDOWN_TIMEOUT")
	setInt(&cfg.Server.RateLimit, "MARKETCHAT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "MARKETCHAT_SERVER_RATE_WINDOW")
	setStringSlice(&cfg.Server.TrustedProxies, "MARKETCHAT_SERVER_TRUSTED_PROXIES")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MARKETCHAT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MARKETCHAT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MARKETCHAT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MARKETCHAT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "MARKETCHAT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
