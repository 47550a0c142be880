package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/jrsteele09/appo-client/api"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestResource(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.RequestURI())
		mu.Unlock()

		if r.Method == http.MethodGet && r.URL.Path == "/widgets" {
			writeJSON(w, http.StatusOK, api.Page[widget]{Items: []widget{{ID: "w-1"}}, Total: 1, Limit: 10})
			return
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, widget{ID: "w-1", Name: r.Method})
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv)
	ctx := context.Background()
	widgets := api.NewResource[widget](client, "/widgets")
	require.Equal(t, "/widgets", widgets.Path())

	page, err := widgets.List(ctx, url.Values{"status": {"pending"}})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "w-1", page.Items[0].ID)

	got, err := widgets.Get(ctx, "w 1")
	require.NoError(t, err)
	require.Equal(t, "GET", got.Name)

	_, err = widgets.Create(ctx, widget{Name: "new"})
	require.NoError(t, err)
	_, err = widgets.Update(ctx, "w-1", widget{Name: "put"})
	require.NoError(t, err)
	_, err = widgets.Patch(ctx, "w-1", map[string]string{"name": "patch"})
	require.NoError(t, err)
	_, err = widgets.Action(ctx, "w-1", "approve", nil)
	require.NoError(t, err)
	require.NoError(t, widgets.Delete(ctx, "w-1"))

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []string{
		"GET /widgets?status=pending",
		"GET /widgets/w%201",
		"POST /widgets",
		"PUT /widgets/w-1",
		"PATCH /widgets/w-1",
		"POST /widgets/w-1/approve",
		"DELETE /widgets/w-1",
	}, calls)
}

func TestItemPath(t *testing.T) {
	require.Equal(t, "/appointments/a-1/cancel", api.ItemPath(api.AppointmentsPath, "a-1", "cancel"))
	require.Equal(t, "/users/a%2Fb", api.ItemPath(api.UsersPath, "a/b"))
}
