package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"database": map[string]interface{}{
			"driver":       DriverPostgres,
			"uri":          "",
			"busy_timeout": "5s",
		},
		"telegram": map[string]interface{}{
			"token": "",
		},
		"ai": map[string]interface{}{
			"api_key":  "",
			"base_url": "https://openrouter.ai/api/v1",
			"model":    "openai/gpt-4o-mini",
			"timeout":  "20s",
		},
		"timezone": "Asia/Taipei",
		"http": map[string]interface{}{
			"addr": ":3000",
		},
		"scan": map[string]interface{}{
			"api_key":           "",
			"enabled":           true,
			"schedule":          "@every 1m",
			"lookahead":         "1h",
			"candidate_timeout": "10s",
			"concurrency":       4,
		},
		"notify": map[string]interface{}{
			"rate_per_sec": 25,
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "console",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}
