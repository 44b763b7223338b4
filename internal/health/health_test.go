package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"secrethobby/backend/internal/storage/memory"
)

func TestHealthChecker(t *testing.T) {
	store := memory.NewStore()
	hc := NewHealthChecker(store, nil)

	probe := func(path string) int {
		rec := httptest.NewRecorder()
		hc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, probe("/live"))
	assert.Equal(t, http.StatusOK, probe("/ready"))

	results, healthy := hc.CheckHealth(context.Background())
	assert.True(t, healthy)
	assert.Equal(t, "OK", results["store"])

	store.SetFailure(errors.New("db down"))
	assert.Equal(t, http.StatusOK, probe("/live"))
	assert.Equal(t, http.StatusServiceUnavailable, probe("/ready"))

	results, healthy = hc.CheckHealth(context.Background())
	assert.False(t, healthy)
	assert.Contains(t, results["store"], "ERROR")
}
