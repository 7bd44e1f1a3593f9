package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/kodbank/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":5000")
//	-k string   broker kind: "kafka" or "memory"
//	-b string   comma-separated Kafka bootstrap addresses
//	-g string   consumer group id
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. The token
// validity flag is accepted as an integer in minutes and converted to a
// time.Duration value.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-b", "-g", "-s", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.BrokerKind, "k", config.BrokerKind, "broker kind (kafka|memory)")
	fs.StringVar(&config.ConsumerGroup, "g", config.ConsumerGroup, "consumer group id")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	brokerAddrs := fs.String("b", strings.Join(config.BrokerAddrs, ","), "kafka bootstrap addresses (comma-separated)")
	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token_validity_duration (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.BrokerAddrs = strings.Split(*brokerAddrs, ",")
	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
}
