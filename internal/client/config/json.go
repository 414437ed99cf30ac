package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type duration time.Duration

func (d *duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*d = duration(time.Duration(x))
	case string:
		p, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		*d = duration(p)
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

type jsonConfig struct {
	ServerURL           *string   `json:"server_url"`
	HealthAddress       *string   `json:"health_address"`
	OnlineCheckInterval *duration `json:"online_check_interval"`
	Timeout             *duration `json:"timeout"`
}

func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.HealthAddress != nil {
		cfg.HealthAddress = *jc.HealthAddress
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = time.Duration(*jc.OnlineCheckInterval)
	}
	if jc.Timeout != nil {
		cfg.Timeout = time.Duration(*jc.Timeout)
	}
	return nil
}
