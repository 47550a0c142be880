package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/appo-client/appointments"
	apperrors "github.com/jrsteele09/appo-client/internal/errors"
)

// AppointmentRepo is the in-memory appointment book.
type AppointmentRepo struct {
	items map[string]*appointments.Appointment
	lock  sync.RWMutex
}

func NewAppointmentRepo() *AppointmentRepo {
	return &AppointmentRepo{items: make(map[string]*appointments.Appointment)}
}

func (ar *AppointmentRepo) Create(customerID string, booking appointments.Booking, now time.Time) (*appointments.Appointment, error) {
	if err := booking.Validate(); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "%v", err)
	}
	a := &appointments.Appointment{
		ID:               uuid.New().String(),
		CustomerID:       customerID,
		BusinessCenterID: booking.BusinessCenterID,
		ServiceID:        booking.ServiceID,
		StartsAt:         booking.StartsAt,
		EndsAt:           booking.EndsAt,
		Status:           appointments.StatusPending,
		Notes:            booking.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	ar.lock.Lock()
	defer ar.lock.Unlock()
	ar.items[a.ID] = a
	copied := *a
	return &copied, nil
}

func (ar *AppointmentRepo) Get(id string) (*appointments.Appointment, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	a, ok := ar.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

// Transition applies a lifecycle action to the appointment.
func (ar *AppointmentRepo) Transition(id, action string, now time.Time) (*appointments.Appointment, error) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	a, ok := ar.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	next, err := appointments.Transition(a.Status, action)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "%v", err)
	}
	a.Status = next
	a.UpdatedAt = now
	copied := *a
	return &copied, nil
}

func (ar *AppointmentRepo) Delete(id string) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	if _, ok := ar.items[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(ar.items, id)
	return nil
}

// List returns the appointments matching keep, ordered by start time, and the
// total number of matches before pagination.
func (ar *AppointmentRepo) List(keep func(appointments.Appointment) bool, offset, limit int) ([]appointments.Appointment, int) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	list := make([]appointments.Appointment, 0, len(ar.items))
	for _, a := range ar.items {
		if keep(*a) {
			list = append(list, *a)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].StartsAt.Before(list[j].StartsAt)
	})
	return paginate(list, offset, limit), len(list)
}
