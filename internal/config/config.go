// Package config provides functionality for managing configuration options
// for the application using a .env file, command-line flags, environment
// variables and an optional JSON config file.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Flash store kinds.
const (
	FlashCookie = "cookie"
	FlashMemory = "memory"
	FlashRedis  = "redis"
)

// ErrNoDatabase is returned when no database URL is configured.
var ErrNoDatabase = errors.New("DATABASE_URL is required")

// Options holds the configuration values for the application.
type Options struct {
	// ServerAddress defines the server's listening address (ip:port).
	ServerAddress string

	// DatabaseURL holds the database connection string. Postgres, sqlite and
	// libsql DSNs are accepted.
	DatabaseURL string

	LogLevel string

	// CheckTimeout bounds a single liveness probe.
	CheckTimeout time.Duration

	// RecordFailedChecks stores a check without status code when a probe fails.
	RecordFailedChecks bool

	// FlashStore selects where flash messages live between requests.
	FlashStore  string
	FlashSecret string
	RedisURL    string

	// TrustedSubnet guards the internal endpoints (CIDR).
	TrustedSubnet string

	// GRPCPort enables the gRPC health server when positive.
	GRPCPort int

	// EnablePprof indicates whether to enable pprof for performance profiling.
	EnablePprof bool

	// EnableHTTPS indicates whether to enable https.
	EnableHTTPS bool

	// Config is the path to a JSON config file.
	Config string
}

// fileOptions mirrors Options in the JSON config file. Nil fields are unset.
type fileOptions struct {
	ServerAddress      *string `json:"server_address"`
	DatabaseURL        *string `json:"database_url"`
	LogLevel           *string `json:"log_level"`
	CheckTimeout       *string `json:"check_timeout"`
	RecordFailedChecks *bool   `json:"record_failed_checks"`
	FlashStore         *string `json:"flash_store"`
	FlashSecret        *string `json:"flash_secret"`
	RedisURL           *string `json:"redis_url"`
	TrustedSubnet      *string `json:"trusted_subnet"`
	GRPCPort           *int    `json:"grpc_port"`
	EnablePprof        *bool   `json:"enable_pprof"`
	EnableHTTPS        *bool   `json:"enable_https"`
}

// Parse reads the configuration of the running process.
func Parse() (*Options, error) {
	return Load(os.Args[1:])
}

// Load builds Options from args and the environment. Environment variables
// win over flags, and both win over the config file.
func Load(args []string) (*Options, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	opts := &Options{}

	fset := flag.NewFlagSet("analyzer", flag.ContinueOnError)
	fset.StringVar(&opts.ServerAddress, "a", "localhost:8000", "run on ip:port server")
	fset.StringVar(&opts.DatabaseURL, "d", "", "database url")
	fset.StringVar(&opts.LogLevel, "l", "info", "log level")
	fset.DurationVar(&opts.CheckTimeout, "t", 10*time.Second, "liveness check timeout")
	fset.BoolVar(&opts.RecordFailedChecks, "r", true, "record checks that got no response")
	fset.StringVar(&opts.FlashStore, "flash", FlashCookie, "flash store: cookie, memory or redis")
	fset.StringVar(&opts.FlashSecret, "k", "", "flash cookie signing key")
	fset.StringVar(&opts.RedisURL, "redis", "", "redis url for the flash store")
	fset.StringVar(&opts.TrustedSubnet, "n", "", "trusted subnet (CIDR)")
	fset.IntVar(&opts.GRPCPort, "g", 0, "gRPC health port, 0 disables")
	fset.BoolVar(&opts.EnablePprof, "p", false, "enable pprof")
	fset.BoolVar(&opts.EnableHTTPS, "s", false, "enable https")
	fset.StringVar(&opts.Config, "c", "", "path to JSON config file")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if path := os.Getenv("CONFIG"); path != "" {
		opts.Config = path
	}
	if opts.Config != "" {
		if err := opts.applyFile(opts.Config, set); err != nil {
			return nil, err
		}
	}

	if err := opts.applyEnv(); err != nil {
		return nil, err
	}

	return opts, opts.validate()
}

func (o *Options) applyFile(path string, set map[string]bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var f fileOptions
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	str := func(flagName string, dst *string, v *string) {
		if v != nil && !set[flagName] {
			*dst = *v
		}
	}
	boolean := func(flagName string, dst *bool, v *bool) {
		if v != nil && !set[flagName] {
			*dst = *v
		}
	}

	str("a", &o.ServerAddress, f.ServerAddress)
	str("d", &o.DatabaseURL, f.DatabaseURL)
	str("l", &o.LogLevel, f.LogLevel)
	str("flash", &o.FlashStore, f.FlashStore)
	str("k", &o.FlashSecret, f.FlashSecret)
	str("redis", &o.RedisURL, f.RedisURL)
	str("n", &o.TrustedSubnet, f.TrustedSubnet)
	boolean("r", &o.RecordFailedChecks, f.RecordFailedChecks)
	boolean("p", &o.EnablePprof, f.EnablePprof)
	boolean("s", &o.EnableHTTPS, f.EnableHTTPS)

	if f.GRPCPort != nil && !set["g"] {
		o.GRPCPort = *f.GRPCPort
	}
	if f.CheckTimeout != nil && !set["t"] {
		d, err := time.ParseDuration(*f.CheckTimeout)
		if err != nil {
			return fmt.Errorf("check_timeout: %w", err)
		}
		o.CheckTimeout = d
	}

	return nil
}

func (o *Options) applyEnv() error {
	strs := map[string]*string{
		"SERVER_ADDRESS": &o.ServerAddress,
		"DATABASE_URL":   &o.DatabaseURL,
		"LOG_LEVEL":      &o.LogLevel,
		"FLASH_STORE":    &o.FlashStore,
		"FLASH_SECRET":   &o.FlashSecret,
		"REDIS_URL":      &o.RedisURL,
		"TRUSTED_SUBNET": &o.TrustedSubnet,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"RECORD_FAILED_CHECKS": &o.RecordFailedChecks,
		"ENABLE_PPROF":         &o.EnablePprof,
		"ENABLE_HTTPS":         &o.EnableHTTPS,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	if v := os.Getenv("CHECK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHECK_TIMEOUT: %w", err)
		}
		o.CheckTimeout = d
	}

	if v := os.Getenv("GRPC_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRPC_PORT: %w", err)
		}
		o.GRPCPort = port
	}

	return nil
}

func (o *Options) validate() error {
	if o.DatabaseURL == "" {
		return ErrNoDatabase
	}
	if o.CheckTimeout <= 0 {
		return fmt.Errorf("check timeout must be positive, got %s", o.CheckTimeout)
	}
	if o.GRPCPort < 0 {
		return fmt.Errorf("invalid gRPC port %d", o.GRPCPort)
	}

	switch o.FlashStore {
	case FlashCookie, FlashMemory:
	case FlashRedis:
		if o.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis flash store")
		}
	default:
		return fmt.Errorf("unknown flash store %q", o.FlashStore)
	}

	return nil
}
