package appointments

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/appo-client/api"
)

// Client books and manages appointments through the gateway.
type Client struct {
	resource *api.Resource[Appointment]
}

func NewClient(gateway *api.Client) *Client {
	return &Client{resource: api.NewResource[Appointment](gateway, api.AppointmentsPath)}
}

func (c *Client) List(ctx context.Context, filter Filter) (*api.Page[Appointment], error) {
	return c.resource.List(ctx, filter.query())
}

func (c *Client) Get(ctx context.Context, id string) (*Appointment, error) {
	return c.resource.Get(ctx, id)
}

// Create validates the booking locally before sending it.
func (c *Client) Create(ctx context.Context, booking Booking) (*Appointment, error) {
	if err := booking.Validate(); err != nil {
		return nil, &api.Error{Message: err.Error(), Code: api.CodeRequestError}
	}
	return c.resource.Create(ctx, booking)
}

func (c *Client) Cancel(ctx context.Context, id string) (*Appointment, error) {
	return c.resource.Action(ctx, id, ActionCancel, nil)
}

func (c *Client) Confirm(ctx context.Context, id string) (*Appointment, error) {
	return c.resource.Action(ctx, id, ActionConfirm, nil)
}

func (c *Client) Complete(ctx context.Context, id string) (*Appointment, error) {
	return c.resource.Action(ctx, id, ActionComplete, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.resource.Delete(ctx, id)
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.BusinessCenterID != "" {
		q.Set("businessCenterId", f.BusinessCenterID)
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.Format(time.RFC3339))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}
