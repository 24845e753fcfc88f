// Package config loads daemon settings from the environment.
// A .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	DataDir    string `env:"AURA_DATA_DIR" envDefault:"data"`
	SocketPath string `env:"AURA_SOCKET" envDefault:"/tmp/aura.sock"`
	FeedAddr   string `env:"AURA_FEED_ADDR" envDefault:"127.0.0.1:8765"`

	WhisperModel string `env:"AURA_WHISPER_MODEL" envDefault:"models/ggml-base.en.bin"`
	EarconPath   string `env:"AURA_EARCON" envDefault:""`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY" envDefault:"ollama"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"http://localhost:11434/v1"`
	ChatModel     string `env:"AURA_CHAT_MODEL" envDefault:"llama2"`
	ProxyAddr     string `env:"AURA_PROXY_ADDR" envDefault:""`

	SMTPHost     string `env:"AURA_SMTP_HOST" envDefault:""`
	SMTPPort     int    `env:"AURA_SMTP_PORT" envDefault:"587"`
	SMTPFrom     string `env:"AURA_SMTP_FROM" envDefault:""`
	SMTPPassword string `env:"AURA_SMTP_PASSWORD" envDefault:""`

	// Contacts entries are "name=address" pairs.
	Contacts        []string `env:"AURA_CONTACTS" envSeparator:"," envDefault:""`
	EmailMaxRetries int      `env:"AURA_EMAIL_RETRIES" envDefault:"3"`

	WakeWindow    time.Duration `env:"AURA_WAKE_WINDOW" envDefault:"5s"`
	CommandWindow time.Duration `env:"AURA_COMMAND_WINDOW" envDefault:"10s"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// ContactMap parses the Contacts entries, keyed by lowercased name.
// Malformed entries are skipped.
func (c *Config) ContactMap() map[string]string {
	m := make(map[string]string, len(c.Contacts))
	for _, entry := range c.Contacts {
		name, addr, ok := strings.Cut(entry, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		addr = strings.TrimSpace(addr)
		if !ok || name == "" || addr == "" {
			continue
		}
		m[name] = addr
	}
	return m
}
