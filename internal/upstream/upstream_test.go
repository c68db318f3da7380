package upstream

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name" validate:"required"`
}

func newRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return req
}

func TestDoJSONDecodesAndValidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"rice"}`))
	}))
	defer srv.Close()

	c := NewCaller("test", srv.Client())
	var out payload
	require.NoError(t, c.DoJSON(newRequest(t, srv.URL), &out))
	assert.Equal(t, "rice", out.Name)
}

func TestDoJSONRejectsSchemaDrift(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"rice"}`))
	}))
	defer srv.Close()

	var out payload
	err := NewCaller("test", srv.Client()).DoJSON(newRequest(t, srv.URL), &out)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDoReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewCaller("weatherapi", srv.Client()).Do(newRequest(t, srv.URL))
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "Unauthorized", se.Status)
	assert.Equal(t, "bad key", se.Body)
	assert.Contains(t, err.Error(), "401")
}

func TestBreakerOpensAfterRepeatedServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewCaller("flaky", srv.Client())
	for i := 0; i < 6; i++ {
		_, err := c.Do(newRequest(t, srv.URL))
		var se *StatusError
		require.True(t, errors.As(err, &se))
	}

	_, err := c.Do(newRequest(t, srv.URL))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(6), atomic.LoadInt32(&hits))
}

func TestConfigErrorMatchesSentinel(t *testing.T) {
	err := error(&ConfigError{Setting: "weather API key"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, "weather API key not configured", err.Error())
}
