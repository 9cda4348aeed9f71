package main

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type config struct {
	Relay      relayConfig
	Tron       tronConfig
	PrivateKey string `envconfig:"PRIVATE_KEY" required:"true"`
	Watch      watchConfig
	Execute    executeConfig
	DataDog    dataDog
}

type relayConfig struct {
	URL string `default:"https://relay.nexus.avail.so"`
}

type tronConfig struct {
	NodeURL string `default:"https://api.trongrid.io"`
}

type watchConfig struct {
	Interval time.Duration `default:"30s"`
}

// executeConfig describes an optional one-shot settlement run at startup.
// Amount empty disables it.
type executeConfig struct {
	NetworkID uint64
	Symbol    string
	Amount    string
	Recipient string
}

type dataDog struct {
	Host string `default:"127.0.0.1"`
	Port string `default:"8125"`
}

func newConfig() (config, error) {
	var cfg config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return config{}, fmt.Errorf("failed to process env var: %w", err)
	}
	return cfg, nil
}
