package source

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2}

func TestCSVSourceHTTP(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "key,2020-01-01\nA,3\n")
	}))
	defer srv.Close()

	src := NewCSV("remote", srv.URL+"/data.csv")
	src.Client = srv.Client()
	src.Retry = fastRetry

	rows, err := collectRows(t, src.Rows(t.Context()))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"key", "2020-01-01"}, {"A", "3"}}, rows)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCSVSourceHTTPFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"not found is permanent", http.StatusNotFound, 1},
		{"rate limit is retried", http.StatusTooManyRequests, 3},
		{"server error exhausts attempts", http.StatusInternalServerError, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			src := NewCSV("remote", srv.URL)
			src.Client = srv.Client()
			src.Retry = fastRetry

			_, err := collectRows(t, src.Rows(t.Context()))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "unexpected status")
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}
