// Package config provides functionality for managing configuration options
// of the diary server using command-line flags, a JSON file and environment
// variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN is the PostgreSQL connection string of the snapshot store.
	DatabaseDSN string `json:"database_dsn"`

	// LogLevel is the minimum level written to the log.
	LogLevel string `json:"log_level"`

	// MirrorIdleTTL is how long an unused mirror connection pool is kept open.
	MirrorIdleTTL Duration `json:"mirror_idle_ttl"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// Duration is a time.Duration that reads "90s"-style strings from JSON.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

const (
	defaultAddress       = "localhost:8080"
	defaultConfig        = "config.json"
	defaultLogLevel      = "info"
	defaultMirrorIdleTTL = 10 * time.Minute
)

// Parse reads os.Args and the environment. It exits the process on invalid input.
func Parse() *Options {
	opts, err := Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	return opts
}

// Load resolves options in the order: flags, then the config file (CONFIG
// overrides -c), then environment variables. The file only fills values
// that were not set by flags.
func Load(args []string, getenv func(string) string) (*Options, error) {
	options := &Options{MirrorIdleTTL: Duration{defaultMirrorIdleTTL}}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&options.Port, "a", defaultAddress, "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.LogLevel, "l", defaultLogLevel, "log level")
	fs.StringVar(&options.Config, "config", defaultConfig, "path to config file")
	fs.StringVar(&options.Config, "c", defaultConfig, "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if err := applyFile(options, set); err != nil {
			return nil, err
		}
	}

	if serverAddress := getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}

	return options, nil
}

func applyFile(options *Options, set map[string]bool) error {
	data, err := os.ReadFile(options.Config)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	file := *options
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	if !set["a"] {
		options.Port = file.Port
	}
	if !set["d"] {
		options.DatabaseDSN = file.DatabaseDSN
	}
	if !set["l"] {
		options.LogLevel = file.LogLevel
	}
	options.MirrorIdleTTL = file.MirrorIdleTTL
	return nil
}
