package core

import (
	"errors"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.TouhouDB.BaseURL != DefaultTouhouDBBaseURL {
		t.Errorf("Expected default base url %s, got %s", DefaultTouhouDBBaseURL, config.TouhouDB.BaseURL)
	}

	if config.Matching.LinkService != DefaultLinkService {
		t.Errorf("Expected default link service %s, got %s", DefaultLinkService, config.Matching.LinkService)
	}

	if len(config.Matching.StripTags) != 0 {
		t.Errorf("Expected no strip tag override by default, got %v", config.Matching.StripTags)
	}

	if config.App.PollInterval != DefaultPollInterval {
		t.Errorf("Expected default poll interval %v, got %v", DefaultPollInterval, config.App.PollInterval)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Missing base url", func(c *Config) { c.TouhouDB.BaseURL = "" }},
		{"Zero timeout", func(c *Config) { c.TouhouDB.Timeout = 0 }},
		{"Missing link service", func(c *Config) { c.Matching.LinkService = "" }},
		{"Port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"Zero poll interval", func(c *Config) { c.App.PollInterval = 0 }},
		{"Zero history size", func(c *Config) { c.App.HistorySize = 0 }},
		{"Unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); !errors.Is(err, errInvalidConfig) {
				t.Errorf("Validate() = %v, expected invalid configuration", err)
			}
		})
	}
}

func TestConfigValidateSpotify(t *testing.T) {
	config := DefaultConfig()
	if err := config.ValidateSpotify(); err == nil {
		t.Error("Expected missing credentials to fail")
	}

	config.Spotify.ClientID = "id"
	config.Spotify.ClientSecret = "secret"
	if err := config.ValidateSpotify(); err != nil {
		t.Errorf("Expected credentials to validate, got %v", err)
	}
}

func TestConfigConstants(t *testing.T) {
	if DefaultServerPort <= 0 || DefaultServerPort > 65535 {
		t.Error("DefaultServerPort should be a valid port number")
	}

	if DefaultHistorySize <= 0 {
		t.Error("DefaultHistorySize should be positive")
	}
}
