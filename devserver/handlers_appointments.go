package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/appo-client/api"
	"github.com/jrsteele09/appo-client/appointments"
	"github.com/jrsteele09/appo-client/users"
)

const defaultPageLimit = 50

func (s *Server) ListAppointmentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.caller(r)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		q := r.URL.Query()
		status := appointments.Status(q.Get("status"))
		businessCenterID := q.Get("businessCenterId")
		from, _ := time.Parse(time.RFC3339, q.Get("from"))
		to, _ := time.Parse(time.RFC3339, q.Get("to"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil || limit <= 0 {
			limit = defaultPageLimit
		}
		if offset < 0 {
			offset = 0
		}

		items, total := s.appointments.List(func(a appointments.Appointment) bool {
			switch {
			case !canView(caller, a):
				return false
			case status != "" && a.Status != status:
				return false
			case businessCenterID != "" && a.BusinessCenterID != businessCenterID:
				return false
			case !from.IsZero() && a.StartsAt.Before(from):
				return false
			case !to.IsZero() && a.StartsAt.After(to):
				return false
			}
			return true
		}, offset, limit)

		writeJSON(w, http.StatusOK, api.Page[appointments.Appointment]{Items: items, Total: total, Offset: offset, Limit: limit})
	}
}

func (s *Server) CreateAppointmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.caller(r)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if caller.Role != users.RoleCustomer {
			writeError(w, http.StatusForbidden, codeForbidden, "Only customers can book appointments")
			return
		}

		var booking appointments.Booking
		if err := decodeJSON(w, r, &booking); err != nil {
			writeDomainError(w, err)
			return
		}
		created, err := s.appointments.Create(caller.ID, booking, s.now())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func (s *Server) GetAppointmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.visibleAppointment(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func (s *Server) DeleteAppointmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.caller(r)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if caller.Role != users.RoleAppAdmin {
			writeError(w, http.StatusForbidden, codeForbidden, "Only administrators can delete appointments")
			return
		}
		if err := s.appointments.Delete(r.PathValue("id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AppointmentActionHandler moves an appointment through its lifecycle.
// Customers may only cancel their own appointments.
func (s *Server) AppointmentActionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.visibleAppointment(w, r)
		if !ok {
			return
		}
		action := r.PathValue("action")
		switch action {
		case appointments.ActionCancel, appointments.ActionConfirm, appointments.ActionComplete:
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "Unknown action "+action)
			return
		}

		caller, _ := s.caller(r)
		if caller.Role == users.RoleCustomer && action != appointments.ActionCancel {
			writeError(w, http.StatusForbidden, codeForbidden, "Customers can only cancel appointments")
			return
		}

		updated, err := s.appointments.Transition(a.ID, action, s.now())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) visibleAppointment(w http.ResponseWriter, r *http.Request) (*appointments.Appointment, bool) {
	caller, err := s.caller(r)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	a, err := s.appointments.Get(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if !canView(caller, *a) {
		// Hidden appointments look like missing ones
		writeError(w, http.StatusNotFound, codeNotFound, "Not found")
		return nil, false
	}
	return a, true
}

// caller loads the account behind the verified access token.
func (s *Server) caller(r *http.Request) (*users.User, error) {
	return s.users.GetByID(claimsFrom(r.Context()).UserID)
}

func canView(u *users.User, a appointments.Appointment) bool {
	switch {
	case u.Role == users.RoleAppAdmin:
		return true
	case u.Role.BelongsToBusinessCenter():
		return u.BusinessCenterID != "" && u.BusinessCenterID == a.BusinessCenterID
	default:
		return a.CustomerID == u.ID
	}
}
