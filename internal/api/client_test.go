package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"railctl/internal/errors"
	"railctl/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type station struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T, h http.Handler, token string) (*Client, *session.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore(token)
	sess, err := session.New(store)
	require.NoError(t, err)

	c, err := NewClient(srv.URL+"/api", sess, WithTimeout(2*time.Second))
	require.NoError(t, err)
	return c, store
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListSendsQueryAndHeaders(t *testing.T) {
	var gotQuery, gotAuth, gotReqID, gotPath string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, []station{{ID: 1, Name: "Central"}})
	})
	c, _ := newTestClient(t, h, "tok-1")
	res := NewResource[station](c, "stations")

	items, err := res.List(context.Background(), url.Values{"region": {"North"}, "minId": {"1"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Central", items[0].Name)

	assert.Equal(t, "/api/stations", gotPath)
	assert.Equal(t, "minId=1&region=North", gotQuery)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Len(t, gotReqID, 36)
}

func TestNoAuthorizationWithoutToken(t *testing.T) {
	var hasAuth bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		writeJSON(w, http.StatusOK, []station{})
	})
	c, _ := newTestClient(t, h, "")

	items, err := NewResource[station](c, "stations").List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.False(t, hasAuth)
}

func TestCount(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/trains/count", r.URL.Path)
		assert.Equal(t, "status=active", r.URL.RawQuery)
		writeJSON(w, http.StatusOK, map[string]int{"count": 12})
	})
	c, _ := newTestClient(t, h, "tok")

	n, err := NewResource[station](c, "trains").Count(context.Background(), url.Values{"status": {"active"}})
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "message body", status: http.StatusConflict, body: `{"message":"Station is used by routes"}`, wantMsg: "Station is used by routes"},
		{name: "no body", status: http.StatusInternalServerError, body: ``, wantMsg: "Internal Server Error"},
		{name: "non json body", status: http.StatusBadGateway, body: `<html>`, wantMsg: "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			c, _ := newTestClient(t, h, "tok")

			_, err := NewResource[station](c, "stations").List(context.Background(), nil)
			require.Error(t, err)
			var apiErr *errors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status())
			assert.Equal(t, tt.wantMsg, apiErr.Error())
		})
	}
}

func TestMutationRejectionIsValidation(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Salary out of range"})
	})
	c, _ := newTestClient(t, h, "tok")
	res := NewResource[station](c, "employees")

	_, err := res.Create(context.Background(), map[string]string{"firstName": "A"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.True(t, errors.IsAPI(err))
	assert.Equal(t, "Salary out of range", err.Error())

	_, err = res.List(context.Background(), nil)
	assert.False(t, errors.IsValidation(err), "reads keep the plain APIError")
}

func TestDeleteNoContent(t *testing.T) {
	var method, path string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	c, _ := newTestClient(t, h, "tok")

	require.NoError(t, NewResource[station](c, "departments").Delete(context.Background(), 3))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/departments/3", path)
}

func TestUpdateSendsJSON(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in station
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.ID = 9
		writeJSON(w, http.StatusOK, in)
	})
	c, _ := newTestClient(t, h, "tok")

	out, err := NewResource[station](c, "stations").Update(context.Background(), 9, station{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, station{ID: 9, Name: "Renamed"}, out)
}

func TestUnauthorizedExpiresSessionOnce(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/positions" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	c, store := newTestClient(t, h, "stale")

	var expired atomic.Int32
	c.Session().Subscribe(func(ev session.Event) {
		if ev.Reason == session.Expired {
			expired.Add(1)
		}
	})

	paths := []string{"employees", "positions", "departments", "brigades", "employees/count", "stations"}
	var wg sync.WaitGroup
	errs := make([]error, len(paths))
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			errs[i] = c.Get(context.Background(), p, nil, &[]station{})
		}(i, p)
	}
	wg.Wait()

	for _, err := range errs {
		assert.True(t, errors.IsSessionExpired(err))
		assert.False(t, errors.IsAPI(err))
	}
	assert.Equal(t, int32(1), expired.Load())
	assert.Equal(t, 1, store.Clears())
	assert.Empty(t, c.Session().Token())
}

func TestNetworkFailure(t *testing.T) {
	sess, err := session.New(nil)
	require.NoError(t, err)
	// Nothing listens on port 1
	c, err := NewClient("http://127.0.0.1:1/api", sess, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = NewResource[station](c, "stations").List(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsNetwork(err))
}

func TestCancelledContext(t *testing.T) {
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c, _ := newTestClient(t, h, "tok")
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := NewResource[station](c, "stations").List(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.IsNetwork(err))
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient("/api", nil)
	assert.True(t, errors.IsInvalidConfig(err))
}
