// Package config handles configuration for the server component,
// including defaults, environment variables, JSON overlay, and
// command-line flags.
package config

import "time"

// Config holds runtime settings for the KodBank server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the public HTTP API.
//   - BrokerKind: "kafka" for a real cluster, "memory" for the in-process log.
//   - BrokerAddrs: Kafka bootstrap addresses.
//   - AccountsTopic / TokensTopic: the two single-partition entity topics.
//   - ConsumerGroup: consumer group id for the materializer.
//   - ConnectTimeout / PublishTimeout: transport bounds; no call hangs past these.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - TokenValidityDuration: session token lifetime.
//   - InitialBalance: balance granted to every new account.
//   - ChatEndpoint / ChatAPIKey: upstream inference API for the chat proxy.
//   - CORSOrigins: UI origins allowed to call the API with credentials.
type Config struct {
	EndpointAddrHTTP      string   `env:"ADDRESS"`
	BrokerKind            string   `env:"BROKER_KIND"`
	BrokerAddrs           []string `env:"BROKER_ADDRS"`
	AccountsTopic         string   `env:"ACCOUNTS_TOPIC"`
	TokensTopic           string   `env:"TOKENS_TOPIC"`
	ConsumerGroup         string   `env:"CONSUMER_GROUP"`
	ConnectTimeout        time.Duration
	PublishTimeout        time.Duration
	SecretKey             string `env:"SECRET_KEY"`
	TokenValidityDuration time.Duration
	InitialBalance        float64  `env:"INITIAL_BALANCE"`
	ChatEndpoint          string   `env:"CHAT_ENDPOINT"`
	ChatAPIKey            string   `env:"HF_API_KEY"`
	CORSOrigins           []string `env:"CORS_ORIGINS"`
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":5000"
	c.BrokerKind = "kafka"
	c.BrokerAddrs = []string{"localhost:9092"}
	c.AccountsTopic = "koduser_topic"
	c.TokensTopic = "usertoken_topic"
	c.ConsumerGroup = "kodbank-group"
	c.ConnectTimeout = 10 * time.Second
	c.PublishTimeout = 10 * time.Second
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 1 * time.Hour
	c.InitialBalance = 100000.0
	c.ChatEndpoint = "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.3"
	c.ChatAPIKey = ""
	c.CORSOrigins = []string{"http://localhost:5173", "http://localhost:5174"}
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, environment variables, and finally
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
