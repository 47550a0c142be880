// Package devserver is an in-memory Appo backend for local runs and tests. It
// implements the auth endpoints with rotating refresh tokens and the
// appointment book.
package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/appo-client/internal/config"
	"github.com/jrsteele09/appo-client/users"
	"github.com/rs/zerolog/log"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Password123"

type Server struct {
	env          string // Environment (e.g., "DEV", "PROD")
	mux          *http.ServeMux
	routes       []string
	config       config.Config
	now          func() time.Time
	seed         bool
	users        *UserRepo
	refresh      *RefreshManager
	issuer       *Issuer
	appointments *AppointmentRepo
}

type Option func(*Server)

// WithNowFunc replaces the clock used for token issuing and expiry.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithoutSeed starts with no accounts.
func WithoutSeed() Option {
	return func(s *Server) {
		s.seed = false
	}
}

func New(cfg config.Config, options ...Option) (*Server, error) {
	s := &Server{
		env:          cfg.GetEnv(),
		mux:          http.NewServeMux(),
		config:       cfg,
		now:          time.Now,
		seed:         true,
		users:        NewUserRepo(),
		appointments: NewAppointmentRepo(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.refresh = NewRefreshManager(cfg.GetRefreshTokenLength(), cfg.GetRefreshTokenExpiry(), s.now)
	s.issuer = NewIssuer(cfg.GetJWTSecret(), cfg.GetAccessTokenExpiry(), s.now)

	if s.seed {
		if err := s.seedAccounts(); err != nil {
			return nil, fmt.Errorf("[devserver New] failed to seed accounts: %w", err)
		}
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Users exposes the account table, e.g. to add fixtures.
func (s *Server) Users() *UserRepo {
	return s.users
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteAuthProfile, ChainMiddleware(s.ProfileHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("PATCH "+RouteAuthProfile, ChainMiddleware(s.UpdateProfileHandler(), s.APIMiddleware(s.RequireAuth())...))

	s.RegisterRouteFunc("GET "+RouteAppointments, ChainMiddleware(s.ListAppointmentsHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("POST "+RouteAppointments, ChainMiddleware(s.CreateAppointmentHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("GET "+RouteAppointment, ChainMiddleware(s.GetAppointmentHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("DELETE "+RouteAppointment, ChainMiddleware(s.DeleteAppointmentHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("POST "+RouteAppointmentAction, ChainMiddleware(s.AppointmentActionHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Preflight for every API route
	s.RegisterRouteFunc("OPTIONS "+APIPrefix+"/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("route registered")
	}
}

func (s *Server) seedAccounts() error {
	demo := []users.User{
		{Email: "admin@appo.dev", FirstName: "Ada", LastName: "Admin", Role: users.RoleAppAdmin, IsActive: true},
		{Email: "owner@appo.dev", FirstName: "Olive", LastName: "Owner", Role: users.RoleBusinessCenterAdmin, IsActive: true, BusinessCenterID: "bc-1"},
		{Email: "staff@appo.dev", FirstName: "Sam", LastName: "Staff", Role: users.RoleBusinessCenter, IsActive: true, BusinessCenterID: "bc-1"},
		{Email: "customer@appo.dev", FirstName: "Casey", LastName: "Customer", Role: users.RoleCustomer, IsActive: true},
	}
	for _, u := range demo {
		if _, err := s.users.Add(u, DemoPassword, s.now()); err != nil {
			return err
		}
	}
	return nil
}
