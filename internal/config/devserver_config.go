package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	jwtSecretKey     = "jwt.secret"
	accessExpiryKey  = "jwt.access_expiry"
	refreshExpiryKey = "jwt.refresh_expiry"
)

// DevServerConfig covers the token settings of the development backend.
type DevServerConfig interface {
	GetJWTSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
}

type DevServer struct {
	v *viper.Viper
}

var _ DevServerConfig = DevServer{}

func (d DevServer) GetJWTSecret() string {
	return d.v.GetString(jwtSecretKey)
}

func (d DevServer) GetAccessTokenExpiry() time.Duration {
	return durationOrMillis(d.v.GetString(accessExpiryKey), 15*time.Minute)
}

func (d DevServer) GetRefreshTokenExpiry() time.Duration {
	return durationOrMillis(d.v.GetString(refreshExpiryKey), 7*24*time.Hour)
}

func (DevServer) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}
