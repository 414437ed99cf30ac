// Package config loads runtime configuration for the bmd CLI.
//
// Sources, later ones win:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / --config.
//  3. Command-line flags.
//
// Durations in JSON may be strings such as "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "health_address": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "timeout": "30s"
//	}
package config
