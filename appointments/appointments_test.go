package appointments_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/appo-client/api"
	"github.com/jrsteele09/appo-client/appointments"
	"github.com/jrsteele09/appo-client/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from    appointments.Status
		action  string
		want    appointments.Status
		wantErr bool
	}{
		{appointments.StatusPending, appointments.ActionConfirm, appointments.StatusConfirmed, false},
		{appointments.StatusPending, appointments.ActionCancel, appointments.StatusCancelled, false},
		{appointments.StatusConfirmed, appointments.ActionComplete, appointments.StatusCompleted, false},
		{appointments.StatusConfirmed, appointments.ActionCancel, appointments.StatusCancelled, false},
		{appointments.StatusPending, appointments.ActionComplete, appointments.StatusPending, true},
		{appointments.StatusCancelled, appointments.ActionConfirm, appointments.StatusCancelled, true},
		{appointments.StatusCompleted, appointments.ActionCancel, appointments.StatusCompleted, true},
		{appointments.StatusPending, "reschedule", appointments.StatusPending, true},
	}

	for _, test := range tests {
		t.Run(string(test.from)+"/"+test.action, func(t *testing.T) {
			got, err := appointments.Transition(test.from, test.action)
			if test.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, test.want, got)
		})
	}
}

func TestBooking_Validate(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	valid := appointments.Booking{BusinessCenterID: "bc-1", ServiceID: "svc-1", StartsAt: start, EndsAt: start.Add(30 * time.Minute)}
	require.NoError(t, valid.Validate())

	noService := valid
	noService.ServiceID = ""
	require.Error(t, noService.Validate())

	backwards := valid
	backwards.EndsAt = start.Add(-time.Minute)
	require.Error(t, backwards.Validate())
}

func TestClient(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.RequestURI())
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet && r.URL.Path == "/appointments" {
			assert.Equal(t, "confirmed", r.URL.Query().Get("status"))
			assert.Equal(t, "20", r.URL.Query().Get("limit"))
			_ = json.NewEncoder(w).Encode(api.Page[appointments.Appointment]{
				Items: []appointments.Appointment{{ID: "a-1", Status: appointments.StatusConfirmed}},
				Total: 1,
			})
			return
		}
		_ = json.NewEncoder(w).Encode(appointments.Appointment{ID: "a-1", Status: appointments.StatusCancelled})
	}))
	defer srv.Close()

	gateway := api.New(
		api.WithBaseURL(srv.URL),
		api.WithLogger(zerolog.Nop()),
		api.WithCustodian(token.NewCustodian(nil, token.WithLogger(zerolog.Nop()))),
	)
	client := appointments.NewClient(gateway)
	ctx := context.Background()

	page, err := client.List(ctx, appointments.Filter{Status: appointments.StatusConfirmed, Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	got, err := client.Cancel(ctx, "a-1")
	require.NoError(t, err)
	require.Equal(t, appointments.StatusCancelled, got.Status)

	_, err = client.Confirm(ctx, "a-1")
	require.NoError(t, err)
	_, err = client.Complete(ctx, "a-1")
	require.NoError(t, err)

	_, err = client.Create(ctx, appointments.Booking{})
	require.Error(t, err)
	require.Zero(t, api.StatusCode(err))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{
		"GET /appointments?limit=20&status=confirmed",
		"POST /appointments/a-1/cancel",
		"POST /appointments/a-1/confirm",
		"POST /appointments/a-1/complete",
	}, calls)
}
