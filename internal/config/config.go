package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/libops/articlebot/internal/gcp"
	"github.com/libops/articlebot/internal/validation"
)

const (
	// DefaultPublishTimeout bounds a single article publish, topic provisioning included.
	DefaultPublishTimeout = 30 * time.Second
	// DefaultChannelRateBurst is used when CHANNEL_RATE_LIMIT is set without a burst.
	DefaultChannelRateBurst = 5

	// legacyTokenKey is the misspelled variable older deployments still export.
	legacyTokenKey = "DISCROD_TOKEN"
)

// Config holds all application configuration.
type Config struct {
	Port string

	DiscordToken string

	GCPProjectID   string // empty means infer from ambient credentials
	PubSubTopic    string
	OrderingKey    string        // empty disables message ordering
	TopicRetention time.Duration // only applied when the topic is created

	PublishTimeout time.Duration

	// Per-channel article rate limit in messages per second. Zero disables limiting.
	ChannelRateLimit float64
	ChannelRateBurst int
}

// Load loads configuration from environment variables and Vault secrets.
// Priority: 1) Environment variables, 2) Vault secrets at /vault/secrets
// Waits up to 120 seconds for the Discord token to appear in Vault.
func Load() (*Config, error) {
	return LoadFrom(NewVaultLoader())
}

// LoadFrom loads configuration using the given loader.
func LoadFrom(loader *VaultLoader) (*Config, error) {
	token, err := loadDiscordToken(loader)
	if err != nil {
		return nil, fmt.Errorf("failed to load DISCORD_TOKEN: %w", err)
	}

	publishTimeout, err := parseDuration(loader.LoadEnvWithDefault("PUBLISH_TIMEOUT", ""), DefaultPublishTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid PUBLISH_TIMEOUT: %w", err)
	}

	retention, err := parseDuration(loader.LoadEnvWithDefault("PUBSUB_TOPIC_RETENTION", ""), 0)
	if err != nil {
		return nil, fmt.Errorf("invalid PUBSUB_TOPIC_RETENTION: %w", err)
	}

	rateLimit, err := strconv.ParseFloat(loader.LoadEnvWithDefault("CHANNEL_RATE_LIMIT", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHANNEL_RATE_LIMIT: %w", err)
	}

	rateBurst, err := strconv.Atoi(loader.LoadEnvWithDefault("CHANNEL_RATE_BURST", strconv.Itoa(DefaultChannelRateBurst)))
	if err != nil {
		return nil, fmt.Errorf("invalid CHANNEL_RATE_BURST: %w", err)
	}

	projectID, topicID := resolveTopic(
		loader.LoadEnvWithDefault("PUBSUB_TOPIC", ""),
		loader.LoadEnvWithDefault("GCP_PROJECT_ID", ""),
	)

	cfg := &Config{
		Port: loader.LoadEnvWithDefault("PORT", "8080"),

		DiscordToken: token,

		GCPProjectID:   projectID,
		PubSubTopic:    topicID,
		OrderingKey:    loader.LoadEnvWithDefault("PUBSUB_ORDERING_KEY", ""),
		TopicRetention: retention,

		PublishTimeout: publishTimeout,

		ChannelRateLimit: rateLimit,
		ChannelRateBurst: rateBurst,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (cfg *Config) Validate() error {
	if err := validation.RequiredString("DISCORD_TOKEN", cfg.DiscordToken); err != nil {
		return err
	}
	if err := validation.RequiredString("PUBSUB_TOPIC", cfg.PubSubTopic); err != nil {
		return err
	}
	if err := gcp.ValidateTopicID(cfg.PubSubTopic); err != nil {
		return fmt.Errorf("invalid PUBSUB_TOPIC: %w", err)
	}
	if cfg.GCPProjectID != "" {
		if err := validation.GCPProjectID("GCP_PROJECT_ID", cfg.GCPProjectID); err != nil {
			return err
		}
	}
	if err := validation.OrderingKey("PUBSUB_ORDERING_KEY", cfg.OrderingKey); err != nil {
		return err
	}
	if err := validation.Port("PORT", cfg.Port); err != nil {
		return err
	}
	if cfg.PublishTimeout <= 0 {
		return fmt.Errorf("PUBLISH_TIMEOUT must be positive")
	}
	if cfg.TopicRetention < 0 {
		return fmt.Errorf("PUBSUB_TOPIC_RETENTION must not be negative")
	}
	if cfg.ChannelRateLimit < 0 {
		return fmt.Errorf("CHANNEL_RATE_LIMIT must not be negative")
	}
	if cfg.ChannelRateLimit > 0 && cfg.ChannelRateBurst < 1 {
		return fmt.Errorf("CHANNEL_RATE_BURST must be at least 1 when CHANNEL_RATE_LIMIT is set")
	}
	return nil
}

// loadDiscordToken prefers DISCORD_TOKEN, falls back to the legacy variable,
// and finally waits for the Vault secret file.
func loadDiscordToken(loader *VaultLoader) (string, error) {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		return token, nil
	}
	if token := os.Getenv(legacyTokenKey); token != "" {
		slog.Warn("Using legacy token variable, rename it to DISCORD_TOKEN", "key", legacyTokenKey)
		return token, nil
	}
	return loader.LoadEnv("DISCORD_TOKEN", true)
}

// resolveTopic accepts PUBSUB_TOPIC as a bare ID or as projects/{p}/topics/{t}.
// An explicit GCP_PROJECT_ID wins over the project in the path, which in turn
// wins over GOOGLE_CLOUD_PROJECT.
func resolveTopic(topic, explicitProject string) (projectID, topicID string) {
	pathProject, topicID := gcp.ParseTopicName(topic)
	switch {
	case explicitProject != "":
		if pathProject != "" && pathProject != explicitProject {
			slog.Warn("PUBSUB_TOPIC names a different project than GCP_PROJECT_ID, using GCP_PROJECT_ID",
				"topic_project", pathProject, "project", explicitProject)
		}
		return explicitProject, topicID
	case pathProject != "":
		return pathProject, topicID
	default:
		return os.Getenv("GOOGLE_CLOUD_PROJECT"), topicID
	}
}

// parseDuration parses a Go duration string, returning defaultValue when s is empty.
func parseDuration(s string, defaultValue time.Duration) (time.Duration, error) {
	if s == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(s)
}
