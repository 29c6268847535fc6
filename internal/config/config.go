package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const configFile = ".modalkit/config.json"

// Default confirm dialog values.
const (
	DefaultConfirmHeader = "<strong>Confirm</strong> Action"
	DefaultConfirmBody   = "Do you really want to perform this action?"
	DefaultConfirmText   = "Confirm"
	DefaultCancelText    = "Cancel"
	DefaultFadeMS        = 200 // jQuery "fast"
)

// Config holds the module defaults for dialogs.
type Config struct {
	ConfirmHeader string `json:"confirm_header,omitempty"`
	ConfirmBody   string `json:"confirm_body,omitempty"`
	ConfirmText   string `json:"confirm_text,omitempty"`
	CancelText    string `json:"cancel_text,omitempty"`
	FadeMS        int    `json:"fade_ms,omitempty"`
}

// Default returns a config with every field set to its default.
func Default() *Config {
	return (&Config{}).WithDefaults()
}

// WithDefaults returns a copy with empty fields filled in.
func (c *Config) WithDefaults() *Config {
	out := *c
	if out.ConfirmHeader == "" {
		out.ConfirmHeader = DefaultConfirmHeader
	}
	if out.ConfirmBody == "" {
		out.ConfirmBody = DefaultConfirmBody
	}
	if out.ConfirmText == "" {
		out.ConfirmText = DefaultConfirmText
	}
	if out.CancelText == "" {
		out.CancelText = DefaultCancelText
	}
	if out.FadeMS <= 0 {
		out.FadeMS = DefaultFadeMS
	}
	return &out
}

// FadeDuration returns the fade transition length.
func (c *Config) FadeDuration() time.Duration {
	if c.FadeMS <= 0 {
		return DefaultFadeMS * time.Millisecond
	}
	return time.Duration(c.FadeMS) * time.Millisecond
}

// Path returns the config file location for baseDir.
func Path(baseDir string) string {
	return filepath.Join(baseDir, configFile)
}

// Load reads the config from disk. Missing fields keep their zero value;
// callers apply WithDefaults.
func Load(baseDir string) (*Config, error) {
	data, err := os.ReadFile(Path(baseDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to disk
func Save(baseDir string, cfg *Config) error {
	configPath := Path(baseDir)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
