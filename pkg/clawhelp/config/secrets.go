package config

import (
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name used in the OS keyring.
const KeyringService = "clawhelp"

// Keyring keys and environment variables for channel tokens.
const (
	DiscordTokenKey  = "discord_token"
	TelegramTokenKey = "telegram_token"

	DiscordTokenEnv  = "CLAWHELP_DISCORD_TOKEN"
	TelegramTokenEnv = "CLAWHELP_TELEGRAM_TOKEN"
)

// StoreSecret saves a secret to the OS keyring.
func StoreSecret(key, value string) error {
	return keyring.Set(KeyringService, key, value)
}

// GetSecret returns a secret from the OS keyring, or "" if absent.
func GetSecret(key string) string {
	val, err := keyring.Get(KeyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteSecret removes a secret from the OS keyring.
func DeleteSecret(key string) error {
	return keyring.Delete(KeyringService, key)
}

// resolveSecret applies the priority keyring → environment → config value.
func resolveSecret(key, env, configured string) (string, string) {
	if v := GetSecret(key); v != "" {
		return v, "keyring"
	}
	if v := os.Getenv(env); v != "" {
		return v, "env"
	}
	if configured != "" {
		return configured, "config"
	}
	return "", ""
}

// ResolveTokens fills the channel tokens in place and logs where each came from.
func (c *Config) ResolveTokens(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	if tok, src := resolveSecret(DiscordTokenKey, DiscordTokenEnv, c.Channels.Discord.Token); src != "" {
		c.Channels.Discord.Token = tok
		logger.Debug("discord token resolved", "source", src)
	}
	if tok, src := resolveSecret(TelegramTokenKey, TelegramTokenEnv, c.Channels.Telegram.Token); src != "" {
		c.Channels.Telegram.Token = tok
		logger.Debug("telegram token resolved", "source", src)
	}
}
