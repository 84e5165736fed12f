package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/timerenting/internal/config"
	"github.com/sudo-init-do/timerenting/internal/observability"
	"github.com/sudo-init-do/timerenting/internal/store/memory"
)

func TestOpenStore_Memory(t *testing.T) {
	st, err := openStore(context.Background(), &config.Config{StoreDriver: "memory"})
	require.NoError(t, err)
	defer st.Close()
	assert.IsType(t, &memory.Store{}, st)
	assert.NoError(t, st.Ping(context.Background()))
}

func TestServer_Probes(t *testing.T) {
	e := newServer(memory.New(), observability.SetupLogging("test"))

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
