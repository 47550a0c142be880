package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	DevServerConfig
	CorsConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetPort() string
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	API
	Storage
	DevServer
	Cors
}

// Load reads configuration from the environment (APPO_ prefix) and an optional
// appo.yaml in the working directory or $HOME/.appo.
func Load() (Config, error) {
	v := newViper()
	v.SetConfigName("appo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.appo")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	return FromViper(v), nil
}

// New returns a Config built from environment variables and defaults only.
func New() Config {
	return FromViper(newViper())
}

// FromViper wraps an existing viper instance. Defaults are applied to it.
func FromViper(v *viper.Viper) Config {
	setDefaults(v)
	return mainConfig{
		EnvVars:   EnvVars{v: v},
		API:       API{v: v},
		Storage:   Storage{v: v},
		DevServer: DevServer{v: v},
		Cors:      Cors{v: v},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(envKey, "DEV")
	v.SetDefault(appNameKey, "Appo")
	v.SetDefault(portKey, "8000")

	v.SetDefault(apiBaseURLKey, "http://localhost:8000/api")
	v.SetDefault(apiTimeoutKey, "10s")

	v.SetDefault(tokenStoreKey, string(StoreMemory))
	v.SetDefault(tokenFileKey, "$HOME/.appo/tokens.json")
	v.SetDefault(redisAddrKey, "127.0.0.1:6379")
	v.SetDefault(redisDBKey, 0)
	v.SetDefault(redisPrefixKey, "appo:")

	v.SetDefault(jwtSecretKey, "appo-dev-secret")
	v.SetDefault(accessExpiryKey, "15m")
	v.SetDefault(refreshExpiryKey, "168h") // 7 days

	v.SetDefault(corsOriginsKey, []string{"http://localhost:3000"})
}
