package iap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/protected", r.URL.Path)
		assert.Equal(t, "Bearer abc.def.ghi", r.Header.Get("Authorization"))
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	body, err := NewFetcher().Fetch(context.Background(), "abc.def.ghi", server.URL+"/protected")
	require.NoError(t, err)
	assert.Equal(t, "OK", body)
}

func TestFetcher_Fetch_BodyVerbatim(t *testing.T) {
	raw := "  line one\r\nline two\n\x00trailing  "
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(raw))
	}))
	defer server.Close()

	body, err := NewFetcher().Fetch(context.Background(), "tok", server.URL)
	require.NoError(t, err)
	assert.Equal(t, raw, body)
}

func TestFetcher_Fetch_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, "Invalid IAP credentials: JWT audience doesn't match this application"},
		{"forbidden", http.StatusForbidden, "forbidden"},
		{"not found", http.StatusNotFound, ""},
		{"bad gateway", http.StatusBadGateway, "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewFetcher().Fetch(context.Background(), "tok", server.URL)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFetch)
			assert.False(t, IsAuthError(err))

			iapErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, iapErr.StatusCode)
			assert.Equal(t, tt.body, iapErr.Body)
		})
	}
}

func TestFetcher_Fetch_TransportErrors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		_, err := NewFetcher().Fetch(context.Background(), "tok", "http://127.0.0.1:0")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFetch)
		assert.Contains(t, err.Error(), "request failed")
	})

	t.Run("invalid URI", func(t *testing.T) {
		_, err := NewFetcher().Fetch(context.Background(), "tok", "://bad")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFetch)
		assert.Contains(t, err.Error(), "failed to create request")
	})
}
