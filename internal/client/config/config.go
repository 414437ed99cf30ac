package config

import (
	"time"

	"github.com/spf13/pflag"
)

type Config struct {
	ServerURL           string
	HealthAddress       string
	OnlineCheckInterval time.Duration
	Timeout             time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.HealthAddress = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.Timeout = 30 * time.Second
}

// Load builds a Config from defaults, the optional JSON file and args.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fs := pflag.NewFlagSet("bmd", pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "path to JSON config file")
	server := fs.StringP("server", "a", cfg.ServerURL, "base URL of the portal")
	healthAddr := fs.String("health", cfg.HealthAddress, "address of the gRPC health endpoint (empty disables)")
	interval := fs.DurationP("interval", "i", cfg.OnlineCheckInterval, "online check interval")
	timeout := fs.Duration("timeout", cfg.Timeout, "HTTP request timeout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configFile != "" {
		if err := parseJSON(cfg, *configFile); err != nil {
			return nil, err
		}
	}

	if fs.Changed("server") {
		cfg.ServerURL = *server
	}
	if fs.Changed("health") {
		cfg.HealthAddress = *healthAddr
	}
	if fs.Changed("interval") {
		cfg.OnlineCheckInterval = *interval
	}
	if fs.Changed("timeout") {
		cfg.Timeout = *timeout
	}
	return cfg, nil
}
