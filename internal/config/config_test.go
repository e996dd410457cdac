package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISCORD_TOKEN", legacyTokenKey, "PUBSUB_TOPIC", "GCP_PROJECT_ID", "GOOGLE_CLOUD_PROJECT",
		"PUBSUB_ORDERING_KEY", "PUBSUB_TOPIC_RETENTION", "PUBLISH_TIMEOUT",
		"CHANNEL_RATE_LIMIT", "CHANNEL_RATE_BURST", "PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("PUBSUB_TOPIC", "articles")

	cfg, err := LoadFrom(newTestLoader(t, time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.PublishTimeout != DefaultPublishTimeout {
		t.Errorf("expected publish timeout %v, got %v", DefaultPublishTimeout, cfg.PublishTimeout)
	}
	if cfg.OrderingKey != "" {
		t.Errorf("expected no ordering key by default, got %q", cfg.OrderingKey)
	}
	if cfg.ChannelRateLimit != 0 || cfg.ChannelRateBurst != DefaultChannelRateBurst {
		t.Errorf("unexpected rate limit defaults: %v/%d", cfg.ChannelRateLimit, cfg.ChannelRateBurst)
	}
}

func TestLoadFrom_TokenFromVault(t *testing.T) {
	clearEnv(t)
	t.Setenv("PUBSUB_TOPIC", "articles")
	loader := newTestLoader(t, time.Second)
	writeSecret(t, loader.secretsDir, "DISCORD_TOKEN", "vault-token\n")

	cfg, err := LoadFrom(loader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DiscordToken != "vault-token" {
		t.Errorf("expected token from vault, got %q", cfg.DiscordToken)
	}
}

func TestLoadFrom_LegacyTokenVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv(legacyTokenKey, "legacy-token")
	t.Setenv("PUBSUB_TOPIC", "articles")

	cfg, err := LoadFrom(newTestLoader(t, time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DiscordToken != "legacy-token" {
		t.Errorf("expected legacy token, got %q", cfg.DiscordToken)
	}
}

func TestLoadFrom_OverridesAndProjectFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("PUBSUB_TOPIC", "articles")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "ambient-project")
	t.Setenv("PUBSUB_ORDERING_KEY", "order")
	t.Setenv("PUBSUB_TOPIC_RETENTION", "48h")
	t.Setenv("PUBLISH_TIMEOUT", "5s")
	t.Setenv("CHANNEL_RATE_LIMIT", "0.5")
	t.Setenv("CHANNEL_RATE_BURST", "2")

	cfg, err := LoadFrom(newTestLoader(t, time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GCPProjectID != "ambient-project" {
		t.Errorf("expected project from GOOGLE_CLOUD_PROJECT, got %q", cfg.GCPProjectID)
	}
	if cfg.OrderingKey != "order" {
		t.Errorf("expected ordering key %q, got %q", "order", cfg.OrderingKey)
	}
	if cfg.TopicRetention != 48*time.Hour {
		t.Errorf("expected retention 48h, got %v", cfg.TopicRetention)
	}
	if cfg.PublishTimeout != 5*time.Second {
		t.Errorf("expected publish timeout 5s, got %v", cfg.PublishTimeout)
	}
	if cfg.ChannelRateLimit != 0.5 || cfg.ChannelRateBurst != 2 {
		t.Errorf("unexpected rate limit: %v/%d", cfg.ChannelRateLimit, cfg.ChannelRateBurst)
	}
}

func TestLoadFrom_FullTopicPath(t *testing.T) {
	tests := []struct {
		name        string
		project     string
		ambient     string
		wantProject string
	}{
		{name: "project from path", wantProject: "path-project"},
		{name: "path beats ambient project", ambient: "ambient-project", wantProject: "path-project"},
		{name: "explicit project wins", project: "explicit-project", ambient: "ambient-project", wantProject: "explicit-project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DISCORD_TOKEN", "token")
			t.Setenv("PUBSUB_TOPIC", "projects/path-project/topics/articles")
			t.Setenv("GCP_PROJECT_ID", tt.project)
			t.Setenv("GOOGLE_CLOUD_PROJECT", tt.ambient)

			cfg, err := LoadFrom(newTestLoader(t, time.Second))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.PubSubTopic != "articles" {
				t.Errorf("expected topic ID %q, got %q", "articles", cfg.PubSubTopic)
			}
			if cfg.GCPProjectID != tt.wantProject {
				t.Errorf("expected project %q, got %q", tt.wantProject, cfg.GCPProjectID)
			}
		})
	}
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "bad publish timeout", key: "PUBLISH_TIMEOUT", value: "soon", wantErr: "PUBLISH_TIMEOUT"},
		{name: "bad retention", key: "PUBSUB_TOPIC_RETENTION", value: "forever", wantErr: "PUBSUB_TOPIC_RETENTION"},
		{name: "bad rate limit", key: "CHANNEL_RATE_LIMIT", value: "fast", wantErr: "CHANNEL_RATE_LIMIT"},
		{name: "bad rate burst", key: "CHANNEL_RATE_BURST", value: "lots", wantErr: "CHANNEL_RATE_BURST"},
		{name: "bad topic", key: "PUBSUB_TOPIC", value: "goog-articles", wantErr: "PUBSUB_TOPIC"},
		{name: "bad topic in path", key: "PUBSUB_TOPIC", value: "projects/my-project/topics/1articles", wantErr: "PUBSUB_TOPIC"},
		{name: "subscription path", key: "PUBSUB_TOPIC", value: "projects/my-project/subscriptions/articles", wantErr: "PUBSUB_TOPIC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DISCORD_TOKEN", "token")
			t.Setenv("PUBSUB_TOPIC", "articles")
			t.Setenv(tt.key, tt.value)

			_, err := LoadFrom(newTestLoader(t, time.Second))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestValidate tests the Validate method of the Config struct.
func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:           "8080",
			DiscordToken:   "token",
			PubSubTopic:    "articles",
			PublishTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.DiscordToken = "" }, wantErr: true},
		{name: "missing topic", mutate: func(c *Config) { c.PubSubTopic = "" }, wantErr: true},
		{name: "topic starting with digit", mutate: func(c *Config) { c.PubSubTopic = "1articles" }, wantErr: true},
		{name: "invalid project id", mutate: func(c *Config) { c.GCPProjectID = "Bad_Project" }, wantErr: true},
		{name: "valid project id", mutate: func(c *Config) { c.GCPProjectID = "articlebot-prod" }},
		{name: "non-numeric port", mutate: func(c *Config) { c.Port = "http" }, wantErr: true},
		{name: "oversized ordering key", mutate: func(c *Config) { c.OrderingKey = strings.Repeat("k", 1025) }, wantErr: true},
		{name: "zero publish timeout", mutate: func(c *Config) { c.PublishTimeout = 0 }, wantErr: true},
		{name: "negative retention", mutate: func(c *Config) { c.TopicRetention = -time.Hour }, wantErr: true},
		{name: "negative rate limit", mutate: func(c *Config) { c.ChannelRateLimit = -1 }, wantErr: true},
		{name: "rate limit without burst", mutate: func(c *Config) { c.ChannelRateLimit = 1; c.ChannelRateBurst = 0 }, wantErr: true},
		{name: "rate limit with burst", mutate: func(c *Config) { c.ChannelRateLimit = 1; c.ChannelRateBurst = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
