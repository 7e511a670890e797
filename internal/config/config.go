// Package config holds the settings shared by the server and the CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"eamsassist-backend/internal/components/telemetry"
	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/transport"
	"eamsassist-backend/lib/configutil"
	"eamsassist-backend/lib/restyutil"

	"github.com/joho/godotenv"
)

// Environment variables read on top of the config file.
const (
	EnvConfigPath = "EAMS_CONFIG"
	EnvPort       = "EAMS_PORT"
	EnvDebug      = "EAMS_DEBUG"
)

const DefaultPath = "config.json5"

type HTTPConfig struct {
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	MaxRedirects      int     `json:"max_redirects"`
	UserAgent         string  `json:"user_agent"`
	// DumpDir receives every raw request/response pair when set.
	DumpDir string `json:"dump_dir"`
}

type ServerConfig struct {
	Port     int  `json:"port"`
	Debug    bool `json:"debug"`
	JSONLogs bool `json:"json_logs"`
	// SessionMaxAgeDays bounds the lifetime of the session cookies handed to
	// browsers.
	SessionMaxAgeDays int  `json:"session_max_age_days"`
	SecureCookies     bool `json:"secure_cookies"`
}

type CalendarConfig struct {
	TimeZone string `json:"time_zone"`
	Name     string `json:"name"`
	MaxWeeks int    `json:"max_weeks"`
}

type Config struct {
	Endpoints eams.Endpoints   `json:"endpoints"`
	HTTP      HTTPConfig       `json:"http"`
	Server    ServerConfig     `json:"server"`
	Calendar  CalendarConfig   `json:"calendar"`
	Telemetry telemetry.Config `json:"telemetry"`
}

func Defaults() Config {
	return Config{
		Endpoints: eams.DefaultEndpoints(),
		HTTP: HTTPConfig{
			TimeoutSeconds:    30,
			RequestsPerSecond: 5,
			MaxRedirects:      eams.DefaultMaxRedirects,
		},
		Server: ServerConfig{
			Port:              8000,
			SessionMaxAgeDays: 90,
		},
		Calendar: CalendarConfig{
			TimeZone: "Asia/Shanghai",
			Name:     "课表",
			MaxWeeks: eams.DefaultMaxWeeks,
		},
	}
}

// LoadEnv loads a .env file from the working directory if there is one.
func LoadEnv() error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads the config file named by EAMS_CONFIG (or path when unset),
// fills unset fields from Defaults and applies the EAMS_PORT and EAMS_DEBUG
// overrides. A missing config file yields the defaults.
func Load(path string) (Config, error) {
	if fromEnv, ok := os.LookupEnv(EnvConfigPath); ok && fromEnv != "" {
		path = fromEnv
	}
	if path == "" {
		path = DefaultPath
	}

	cfg, err := configutil.ReadWithDefaults(path, Defaults())
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if value, ok := os.LookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvPort, err)
		}
		cfg.Server.Port = port
	}
	if value, ok := os.LookupEnv(EnvDebug); ok {
		debug, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvDebug, err)
		}
		cfg.Server.Debug = debug
	}
	return cfg, nil
}

// TransportOptions converts the HTTP section, opening the dump directory when
// one is configured.
func (c Config) TransportOptions() (transport.Options, error) {
	opts := transport.Options{
		Timeout:           time.Duration(c.HTTP.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.HTTP.RequestsPerSecond,
		MaxRedirects:      c.HTTP.MaxRedirects,
		UserAgent:         c.HTTP.UserAgent,
	}
	if c.HTTP.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(c.HTTP.DumpDir)
		if err != nil {
			return transport.Options{}, err
		}
		opts.Dump = output
	}
	return opts, nil
}

func (c Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Server.SessionMaxAgeDays) * 24 * time.Hour
}
