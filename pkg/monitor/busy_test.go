package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBusyTestChecker(serverURL string) *BackendBusyChecker {
	checker := NewBackendBusyChecker(serverURL)
	// a name no process on the test host will carry, so only the API signal fires
	checker.ProcessNames = []string{"promptwatch-busy-test-nonexistent"}
	checker.SampleInterval = 10 * time.Millisecond
	return checker
}

func TestBusyWhenModelsLoaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/ps", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.1:8b"}]}`))
	}))
	defer srv.Close()

	busy, reason, err := newBusyTestChecker(srv.URL).Busy(context.Background())
	require.NoError(t, err)
	assert.True(t, busy)
	assert.Contains(t, reason, "llama3.1:8b")
}

func TestNotBusyWhenNoModelsLoaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	busy, _, err := newBusyTestChecker(srv.URL).Busy(context.Background())
	require.NoError(t, err)
	assert.False(t, busy)
}

func TestUnreachableServerIsNotBusy(t *testing.T) {
	// a failing signal must never wedge the monitor
	checker := newBusyTestChecker("http://127.0.0.1:1")
	checker.HTTPClient = &http.Client{Timeout: 100 * time.Millisecond}

	busy, _, err := checker.Busy(context.Background())
	require.NoError(t, err)
	assert.False(t, busy)
}
