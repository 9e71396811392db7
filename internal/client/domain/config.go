package domain

import (
	"time"
)

type PassportConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Keep      bool
}

type ServerConfig struct {
	RPCAddress  string
	HTTPAddress string
}

type JournalConfig struct {
	DSN        string
	MaxEntries int
}

type Config struct {
	Passport PassportConfig
	Server   ServerConfig
	Journal  JournalConfig
	LogLevel string
}

func DefaultConfig() Config {
	return Config{
		Passport: PassportConfig{
			BaseURL:   "https://passport.bilibili.com",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:91.0) Gecko/20100101 Firefox/91.0",
			Timeout:   10 * time.Second,
			Keep:      true,
		},
		Server: ServerConfig{
			RPCAddress:  "127.0.0.1:7701",
			HTTPAddress: "127.0.0.1:7702",
		},
		Journal: JournalConfig{
			DSN:        "file::memory:?cache=shared",
			MaxEntries: 50,
		},
		LogLevel: "info",
	}
}

type ConfigRepository interface {
	Get() (Config, error)
	Save(cfg Config) error
}
