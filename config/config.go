package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type Config struct {
	Bind                    string
	Upstreams               []string
	HealthCheckIntervalSecs int
	HealthCheckPath         string
	MaxRequestsPerMinute    int
	LogLevel                string
	Env                     string
	LogFile                 string
}

// HealthCheckInterval returns the probe interval as a duration.
func (c *Config) HealthCheckInterval() time.Duration {
	return time.Duration(c.HealthCheckIntervalSecs) * time.Second
}

// Load parses the command line (args excludes the program name), applies
// BALANCERD_* environment overrides and validates the result.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("balancerd", pflag.ContinueOnError)
	flags.String("bind", "0.0.0.0:1100", "IP/port to bind to")
	flags.StringSlice("upstream", nil, "Upstream host to forward requests to (repeatable)")
	flags.Int("active-health-check-interval", 10, "Perform active health checks on this interval (in seconds)")
	flags.String("active-health-check-path", "/", "Path to send request to for active health checks")
	flags.Int("max-requests-per-minute", 0, "Maximum number of requests to accept per IP per minute (0 = unlimited)")
	flags.String("log-level", LogLevelInfo, "Log level (debug, info, warn, error)")
	flags.String("env", EnvDev, "Deployment environment (dev, staging, prod)")
	flags.String("log-file", "", "Optional path for a rotated log file")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("BALANCERD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}

	cfg := &Config{
		Bind:                    v.GetString("bind"),
		Upstreams:               v.GetStringSlice("upstream"),
		HealthCheckIntervalSecs: v.GetInt("active-health-check-interval"),
		HealthCheckPath:         v.GetString("active-health-check-path"),
		MaxRequestsPerMinute:    v.GetInt("max-requests-per-minute"),
		LogLevel:                v.GetString("log-level"),
		Env:                     v.GetString("env"),
		LogFile:                 v.GetString("log-file"),
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bind,
			validation.Required,
			validation.By(validateHostPort),
		),
		validation.Field(&c.Upstreams,
			validation.Required.Error("at least one upstream server must be specified"),
			validation.Length(1, 0),
			validation.Each(validation.By(validateHostPort)),
		),
		validation.Field(&c.HealthCheckIntervalSecs,
			validation.Required,
			validation.Min(1),
		),
		validation.Field(&c.HealthCheckPath,
			validation.Required,
			validation.By(validatePath),
		),
		validation.Field(&c.MaxRequestsPerMinute,
			validation.Min(0),
		),
		validation.Field(&c.LogLevel,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
		validation.Field(&c.Env,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validatePath(value interface{}) error {
	path, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if !strings.HasPrefix(path, "/") {
		return validation.NewError("validation_invalid_path", "must start with /")
	}

	return nil
}
