package devserver

import "github.com/jrsteele09/appo-client/api"

// APIPrefix is where the backend mounts its routes, matching the client's default base URL.
const APIPrefix = "/api"

const (
	RouteAuthLogin    = APIPrefix + api.LoginPath
	RouteAuthRegister = APIPrefix + api.RegisterPath
	RouteAuthRefresh  = APIPrefix + api.RefreshPath
	RouteAuthLogout   = APIPrefix + api.LogoutPath
	RouteAuthProfile  = APIPrefix + api.ProfilePath

	RouteAppointments      = APIPrefix + api.AppointmentsPath
	RouteAppointment       = RouteAppointments + "/{id}"
	RouteAppointmentAction = RouteAppointments + "/{id}/{action}"

	RouteHealth = "/healthz"
)
