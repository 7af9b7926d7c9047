// Package config handles loading and parsing of configuration from command
// line flags and environment variables. It defines the proxy configuration
// structure including the bind address, upstream addresses, health check
// settings and the per-IP request quota.
package config
