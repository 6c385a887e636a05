package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	client := New()
	assert.Equal(t, DefaultTimeout, client.Timeout)
	assert.Equal(t, http.DefaultTransport, client.Transport)

	client = New(WithTimeout(5 * time.Second))
	assert.Equal(t, 5*time.Second, client.Timeout)
}

func TestNew_WithHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(WithHeaders(map[string]string{
		"X-Custom":   "global",
		"X-Override": "from-client",
	}))

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-Override", "from-request")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "global", got.Get("X-Custom"))
	assert.Equal(t, "from-request", got.Get("X-Override"))
	// the caller's request is not mutated
	assert.Empty(t, req.Header.Get("X-Custom"))
}

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(req)
}

func TestNew_WithTransport(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Custom")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	base := &countingTransport{}
	client := New(WithTransport(base), WithHeaders(map[string]string{"X-Custom": "v"}))

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 1, base.calls, "headers wrap the given transport")
	assert.Equal(t, "v", got)
}
