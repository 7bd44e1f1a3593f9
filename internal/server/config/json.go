package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/kodbank/internal/flagx"
	"github.com/dmitrijs2005/kodbank/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "10s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	BrokerKind            string         `json:"broker_kind"`
	BrokerAddrs           []string       `json:"broker_addrs"`
	AccountsTopic         string         `json:"accounts_topic"`
	TokensTopic           string         `json:"tokens_topic"`
	ConsumerGroup         string         `json:"consumer_group"`
	ConnectTimeout        timex.Duration `json:"connect_timeout"`
	PublishTimeout        timex.Duration `json:"publish_timeout"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	InitialBalance        float64        `json:"initial_balance"`
	ChatEndpoint          string         `json:"chat_endpoint"`
	ChatAPIKey            string         `json:"chat_api_key"`
	CORSOrigins           []string       `json:"cors_origins"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; if neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics. Only fields present in the file
// override the current values.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.BrokerKind != "" {
		config.BrokerKind = c.BrokerKind
	}
	if len(c.BrokerAddrs) > 0 {
		config.BrokerAddrs = c.BrokerAddrs
	}
	if c.AccountsTopic != "" {
		config.AccountsTopic = c.AccountsTopic
	}
	if c.TokensTopic != "" {
		config.TokensTopic = c.TokensTopic
	}
	if c.ConsumerGroup != "" {
		config.ConsumerGroup = c.ConsumerGroup
	}
	if c.ConnectTimeout.Duration != 0 {
		config.ConnectTimeout = time.Duration(c.ConnectTimeout.Duration)
	}
	if c.PublishTimeout.Duration != 0 {
		config.PublishTimeout = time.Duration(c.PublishTimeout.Duration)
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	}
	if c.InitialBalance != 0 {
		config.InitialBalance = c.InitialBalance
	}
	if c.ChatEndpoint != "" {
		config.ChatEndpoint = c.ChatEndpoint
	}
	if c.ChatAPIKey != "" {
		config.ChatAPIKey = c.ChatAPIKey
	}
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
}
