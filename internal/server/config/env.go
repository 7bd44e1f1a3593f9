package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays Config fields from environment variables using the
// struct's env tags. Duration fields are handled separately so they can be
// given in Go duration syntax ("10s", "1h").
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}

	for name, target := range map[string]*time.Duration{
		"CONNECT_TIMEOUT": &config.ConnectTimeout,
		"PUBLISH_TIMEOUT": &config.PublishTimeout,
		"TOKEN_VALIDITY":  &config.TokenValidityDuration,
	} {
		if v, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*target = d
		}
	}
}
