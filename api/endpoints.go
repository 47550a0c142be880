package api

import "net/url"

// Authentication endpoints
const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	RefreshPath  = "/auth/refresh"
	LogoutPath   = "/auth/logout"
	ProfilePath  = "/auth/profile"
)

// Resource collections
const (
	AppointmentsPath = "/appointments"
	UsersPath        = "/users"
)

// LoginRoute is the unauthenticated entry point users are sent to when their
// credentials cannot be renewed.
const LoginRoute = "/login"

// ItemPath joins a collection path, an escaped ID and optional sub-paths.
func ItemPath(collection, id string, sub ...string) string {
	p := collection + "/" + url.PathEscape(id)
	for _, s := range sub {
		p += "/" + s
	}
	return p
}
