package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the CLI's connection settings. Colours are not stored here.
type Config struct {
	Port             string        `yaml:"port"`             // e.g. /dev/ttyACM0 or COM3
	WaitPeriod       time.Duration `yaml:"wait_period"`      // settle period after a frame
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`  // 0 waits forever
	ProbeInterval    time.Duration `yaml:"probe_interval"`   // probe repeat period
	StrictDisconnect bool          `yaml:"strict_disconnect"`
	LogLevel         string        `yaml:"log_level"` // zerolog level name
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		WaitPeriod:     300 * time.Millisecond,
		ConnectTimeout: 30 * time.Second,
		ProbeInterval:  3 * time.Second,
		LogLevel:       "info",
	}
}

// Load reads a YAML config file. Fields missing from the file keep their
// Default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.WaitPeriod < 0 || c.ConnectTimeout < 0 || c.ProbeInterval < 0 {
		return nil, fmt.Errorf("parse %s: durations must not be negative", path)
	}
	return &c, nil
}

// Save writes c to path as YAML.
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
