package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Load reads, defaults, and validates the INI configuration file at path.
// A validation failure is returned as a single aggregated error (see Validate)
// and the caller should treat it as fatal — the daemon refuses to start.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{
		Video:    DefaultVideo(),
		Server:   DefaultServer(),
		Encoding: Encoding{},
	}

	if err := f.Section("VIDEO").MapTo(&cfg.Video); err != nil {
		return nil, fmt.Errorf("parse [VIDEO]: %w", err)
	}
	if err := f.Section("WEBHOOK").MapTo(&cfg.Webhook); err != nil {
		return nil, fmt.Errorf("parse [WEBHOOK]: %w", err)
	}
	if err := f.Section("BACKBLAZE_B2").MapTo(&cfg.B2); err != nil {
		return nil, fmt.Errorf("parse [BACKBLAZE_B2]: %w", err)
	}
	if err := f.Section("SERVER").MapTo(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parse [SERVER]: %w", err)
	}
	if err := f.Section("VIDEO_ENCODING").MapTo(&cfg.Encoding); err != nil {
		return nil, fmt.Errorf("parse [VIDEO_ENCODING]: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
