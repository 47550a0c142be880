package config

import (
	"strings"

	"github.com/spf13/viper"
)

const corsOriginsKey = "cors.allowed_origins"

type Cors struct {
	v *viper.Viper
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins accepts a YAML list or a comma separated env value.
func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, entry := range c.v.GetStringSlice(corsOriginsKey) {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins[origin] = nullValue{}
			}
		}
	}
	return origins
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, PUT, PATCH, DELETE"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization, X-Request-ID"
}
