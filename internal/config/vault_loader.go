package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// VaultSecretsDir is where vault-agent renders secrets by default
	VaultSecretsDir = "/vault/secrets"
	// DefaultTimeout is how long a required secret is awaited
	DefaultTimeout = 120 * time.Second
	// PollInterval is how often the secrets directory is checked
	PollInterval = 2 * time.Second
)

// timeSource lets tests substitute fake time
type timeSource interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realTime struct{}

func (realTime) Now() time.Time                         { return time.Now() }
func (realTime) After(d time.Duration) <-chan time.Time { return time.After(d) }

// VaultLoader resolves configuration keys from the environment, falling back
// to one file per key in a vault-agent secrets directory.
type VaultLoader struct {
	secretsDir string
	timeout    time.Duration
	timeSource timeSource
}

// NewVaultLoader creates a loader for VAULT_SECRETS_DIR, or /vault/secrets when unset.
func NewVaultLoader() *VaultLoader {
	secretsDir := os.Getenv("VAULT_SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = VaultSecretsDir
	}

	return &VaultLoader{
		secretsDir: secretsDir,
		timeout:    DefaultTimeout,
		timeSource: realTime{},
	}
}

// SecretsDir returns the directory secrets are read from.
func (v *VaultLoader) SecretsDir() string {
	return v.secretsDir
}

// LoadEnv returns the value for key from the environment or the secrets directory.
// A required key that is in neither place is awaited until the loader's timeout.
func (v *VaultLoader) LoadEnv(key string, required bool) (string, error) {
	if value := os.Getenv(key); value != "" {
		slog.Debug("Using environment variable", "key", key)
		return value, nil
	}

	secretPath := filepath.Join(v.secretsDir, key)
	if !required {
		if value, err := readSecretFile(secretPath); err == nil && value != "" {
			slog.Debug("Loaded optional variable from Vault", "key", key)
			return value, nil
		}
		return "", nil
	}

	slog.Info("Waiting for required variable", "key", key, "timeout", v.timeout)
	return v.waitForSecret(key, secretPath)
}

// LoadEnvWithDefault loads an optional key, returning defaultValue when it is absent.
func (v *VaultLoader) LoadEnvWithDefault(key, defaultValue string) string {
	value, err := v.LoadEnv(key, false)
	if err != nil || value == "" {
		return defaultValue
	}
	return value
}

// readSecretFile reads a secret, dropping the trailing newline vault-agent templates usually add.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (v *VaultLoader) waitForSecret(key, path string) (string, error) {
	start := v.timeSource.Now()
	deadline := start.Add(v.timeout)

	for {
		value, err := readSecretFile(path)
		if err == nil && value != "" {
			slog.Info("Loaded required variable from Vault",
				"key", key,
				"elapsed", v.timeSource.Now().Sub(start).Round(time.Second))
			return value, nil
		}

		if v.timeSource.Now().After(deadline) {
			return "", fmt.Errorf("timeout waiting for required variable %s after %v", key, v.timeout)
		}

		<-v.timeSource.After(PollInterval)
	}
}
