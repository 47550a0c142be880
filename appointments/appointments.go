package appointments

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Final reports whether no further transition is allowed.
func (s Status) Final() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Lifecycle actions posted to /appointments/{id}/{action}
const (
	ActionCancel   = "cancel"
	ActionConfirm  = "confirm"
	ActionComplete = "complete"
)

// Transition returns the status an action moves from to, or an error if the
// action is not allowed in that state.
func Transition(from Status, action string) (Status, error) {
	switch {
	case action == ActionCancel && !from.Final():
		return StatusCancelled, nil
	case action == ActionConfirm && from == StatusPending:
		return StatusConfirmed, nil
	case action == ActionComplete && from == StatusConfirmed:
		return StatusCompleted, nil
	}
	return from, fmt.Errorf("cannot %s an appointment that is %s", action, from)
}

type Appointment struct {
	ID               string    `json:"id"`
	CustomerID       string    `json:"customerId"`
	BusinessCenterID string    `json:"businessCenterId"`
	ServiceID        string    `json:"serviceId"`
	StartsAt         time.Time `json:"startsAt"`
	EndsAt           time.Time `json:"endsAt"`
	Status           Status    `json:"status"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (a Appointment) Duration() time.Duration {
	return a.EndsAt.Sub(a.StartsAt)
}

// Booking is the body of a create request.
type Booking struct {
	BusinessCenterID string    `json:"businessCenterId"`
	ServiceID        string    `json:"serviceId"`
	StartsAt         time.Time `json:"startsAt"`
	EndsAt           time.Time `json:"endsAt"`
	Notes            string    `json:"notes,omitempty"`
}

func (b Booking) Validate() error {
	if b.BusinessCenterID == "" {
		return fmt.Errorf("business center is required")
	}
	if b.ServiceID == "" {
		return fmt.Errorf("service is required")
	}
	if b.StartsAt.IsZero() || !b.EndsAt.After(b.StartsAt) {
		return fmt.Errorf("appointment must end after it starts")
	}
	return nil
}

// Filter narrows a list request.
type Filter struct {
	Status           Status
	BusinessCenterID string
	From, To         time.Time
	Offset, Limit    int
}
