// Package app wires the loci client runtime: config, logging, and the
// optional debug metrics listener.
package app

import (
	"time"

	"github.com/spf13/viper"
)

// Viper keys. Flags, `~/.loci.yaml`, and LOCI_* env vars all feed these.
const (
	KeyAPIBaseURL  = "api_base_url"
	KeySocketURL   = "socket_url"
	KeyLogLevel    = "log_level"
	KeyLogFormat   = "log_format"
	KeyMetricsAddr = "metrics_addr"
)

// Config contains all runtime configuration for the client.
type Config struct {
	APIBaseURL string
	SocketURL  string

	LogLevel  string
	LogFormat string

	// MetricsAddr is a debug-only prometheus listener; empty disables it.
	MetricsAddr string

	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// SetDefaults registers config defaults on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIBaseURL, "http://localhost:8000/api/v1")
	v.SetDefault(KeySocketURL, "ws://localhost:8000/ws")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "pretty")
	v.SetDefault(KeyMetricsAddr, "")
}

// FromViper builds a Config from a prepared viper instance, with env-var
// overrides for tunables that have no flag.
func FromViper(v *viper.Viper) Config {
	return Config{
		APIBaseURL: v.GetString(KeyAPIBaseURL),
		SocketURL:  v.GetString(KeySocketURL),

		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),

		MetricsAddr: v.GetString(KeyMetricsAddr),

		DialTimeout:  EnvDuration("LOCI_DIAL_TIMEOUT", 10*time.Second),
		WriteTimeout: EnvDuration("LOCI_WRITE_TIMEOUT", 5*time.Second),
	}
}
