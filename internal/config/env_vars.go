package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "APPO"

const (
	envKey     = "env"
	appNameKey = "app_name"
	portKey    = "port"

	apiBaseURLKey = "api.base_url"
	apiTimeoutKey = "api.timeout"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameKey)
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.v.GetString(envKey))
}

func (e EnvVars) GetPort() string {
	port := e.v.GetString(portKey)
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

// GetAPIBaseURL returns the remote service base address without a trailing slash.
func (a API) GetAPIBaseURL() string {
	return strings.TrimRight(a.v.GetString(apiBaseURLKey), "/")
}

// GetAPITimeout accepts a Go duration ("10s") or a bare number of milliseconds ("10000").
func (a API) GetAPITimeout() time.Duration {
	return durationOrMillis(a.v.GetString(apiTimeoutKey), 10*time.Second)
}

func durationOrMillis(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		if ms <= 0 {
			return fallback
		}
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetEnv returns the named environment variable or defaultValue when unset.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
