package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/daylight/internal/daywindow"
	"github.com/dokzlo13/daylight/internal/geo"
)

// ErrInvalid is returned for missing or invalid configuration values.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	Hue             HueConfig         `yaml:"hue"`
	Geo             GeoConfig         `yaml:"geo"`
	Day             DayConfig         `yaml:"day"`
	Loop            LoopConfig        `yaml:"loop"`
	Log             LogConfig         `yaml:"log"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge  string   `yaml:"bridge"` // Empty means discover on the local network
	Token   string   `yaml:"token"`
	Light   string   `yaml:"light"`   // v1 light ID to drive
	Timeout Duration `yaml:"timeout"` // HTTP timeout for Hue API requests
	Retries int      `yaml:"retries"` // Attempts per request, including the first one
}

// GeoConfig contains geo/location settings for astronomical calculations
type GeoConfig struct {
	Lat      *float64 `yaml:"lat"`
	Lon      *float64 `yaml:"lon"`
	Timezone string   `yaml:"timezone"` // IANA name, empty means the system local zone
	Provider string   `yaml:"provider"` // sunrise | suncalc | noaa
}

// DayConfig contains the user's active hours
type DayConfig struct {
	WakeUp  string    `yaml:"wake_up"`  // HH:MM
	BedTime string    `yaml:"bed_time"` // HH:MM
	Slack   *Duration `yaml:"slack"`    // Unset means 30m, "0s" disables the slack
}

// LoopConfig contains control loop settings
type LoopConfig struct {
	Interval       Duration `yaml:"interval"`
	RequestTimeout Duration `yaml:"request_timeout"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the log level
func (c *LogConfig) GetLevel() string {
	return c.Level
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Hue defaults
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(5 * time.Second)
	}
	if cfg.Hue.Retries == 0 {
		cfg.Hue.Retries = 2
	}

	// Geo defaults
	if cfg.Geo.Provider == "" {
		cfg.Geo.Provider = geo.ProviderSunrise
	}

	// Day defaults
	if cfg.Day.WakeUp == "" {
		cfg.Day.WakeUp = "07:30"
	}
	if cfg.Day.BedTime == "" {
		cfg.Day.BedTime = "22:00"
	}
	if cfg.Day.Slack == nil {
		slack := Duration(daywindow.DefaultSlack)
		cfg.Day.Slack = &slack
	}

	// Loop defaults
	if cfg.Loop.Interval == 0 {
		cfg.Loop.Interval = Duration(1500 * time.Millisecond)
	}
	if cfg.Loop.RequestTimeout == 0 {
		cfg.Loop.RequestTimeout = cfg.Hue.Timeout
	}
	if cfg.Loop.RateLimitRPS == 0 {
		cfg.Loop.RateLimitRPS = 2.0
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks required values. Bridge credentials are checked separately
// by ValidateBridge since preview mode never talks to the bridge.
func (cfg *Config) Validate() error {
	if cfg.Geo.Lat == nil || cfg.Geo.Lon == nil {
		return fmt.Errorf("%w: geo.lat and geo.lon are required", ErrInvalid)
	}
	if err := cfg.Coordinate().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("%w: geo.timezone: %w", ErrInvalid, err)
	}
	if !geo.IsProvider(cfg.Geo.Provider) {
		return fmt.Errorf("%w: unknown geo.provider %q", ErrInvalid, cfg.Geo.Provider)
	}
	if _, err := cfg.DayWindow(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if cfg.Loop.Interval.Duration() <= 0 || cfg.Loop.RequestTimeout.Duration() <= 0 {
		return fmt.Errorf("%w: loop.interval and loop.request_timeout must be positive", ErrInvalid)
	}
	if cfg.Loop.RateLimitRPS < 0 || math.IsNaN(cfg.Loop.RateLimitRPS) {
		return fmt.Errorf("%w: loop.rate_limit_rps must not be negative", ErrInvalid)
	}
	if cfg.Hue.Retries < 1 {
		return fmt.Errorf("%w: hue.retries must be at least 1", ErrInvalid)
	}
	return nil
}

// ValidateBridge checks the settings needed to drive a light.
func (cfg *Config) ValidateBridge() error {
	if cfg.Hue.Token == "" {
		return fmt.Errorf("%w: hue.token is required", ErrInvalid)
	}
	if cfg.Hue.Light == "" {
		return fmt.Errorf("%w: hue.light is required", ErrInvalid)
	}
	return nil
}

// Coordinate returns the configured location. Lat and Lon must be set.
func (cfg *Config) Coordinate() geo.Coordinate {
	var c geo.Coordinate
	if cfg.Geo.Lat != nil {
		c.Lat = *cfg.Geo.Lat
	}
	if cfg.Geo.Lon != nil {
		c.Lon = *cfg.Geo.Lon
	}
	return c
}

// Location returns the configured timezone, falling back to time.Local
func (cfg *Config) Location() (*time.Location, error) {
	if cfg.Geo.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(cfg.Geo.Timezone)
}

// DayWindow parses the day section into a window configuration
func (cfg *Config) DayWindow() (daywindow.Config, error) {
	wake, err := daywindow.ParseClockTime(cfg.Day.WakeUp)
	if err != nil {
		return daywindow.Config{}, fmt.Errorf("day.wake_up: %w", err)
	}
	bed, err := daywindow.ParseClockTime(cfg.Day.BedTime)
	if err != nil {
		return daywindow.Config{}, fmt.Errorf("day.bed_time: %w", err)
	}
	dc := daywindow.Config{
		WakeUp:  wake,
		BedTime: bed,
		Slack:   daywindow.DefaultSlack,
	}
	if cfg.Day.Slack != nil {
		dc.Slack = cfg.Day.Slack.Duration()
	}
	if err := dc.Validate(); err != nil {
		return daywindow.Config{}, err
	}
	return dc, nil
}

// GetShutdownTimeout returns the shutdown timeout
func (cfg *Config) GetShutdownTimeout() time.Duration {
	return cfg.ShutdownTimeout.Duration()
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
