package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientReverse(t *testing.T) {
	t.Run("parses address and falls back to town", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/reverse", r.URL.Path)
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"display_name": "Broadway, Midtown, New York",
				"address": {"road": "Broadway", "town": "New York", "country": "United States"}
			}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, 0, nil, 0, zap.NewNop())
		addr, err := c.Reverse(context.Background(), 40.7580, -73.9855)
		require.NoError(t, err)
		assert.Equal(t, "Broadway", addr.Road)
		assert.Equal(t, "New York", addr.City)
		assert.Equal(t, "United States", addr.Country)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, 0, nil, 0, zap.NewNop())
		_, err := c.Reverse(context.Background(), 40.7580, -73.9855)
		assert.Error(t, err)
	})
}
