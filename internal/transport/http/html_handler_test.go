package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeDashboardPage(t *testing.T) {
	t.Run("missing dashboard returns 404", func(t *testing.T) {
		handler := ServeDashboardPage(filepath.Join(t.TempDir(), "interactive_dashboard.html"))

		req := httptest.NewRequest("GET", "/dashboard", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Start a cleaning run")
	})

	t.Run("serves generated dashboard", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "interactive_dashboard.html")
		require.NoError(t, os.WriteFile(path, []byte("<html><body>Roster Dashboard</body></html>"), 0644))

		handler := ServeDashboardPage(path)

		req := httptest.NewRequest("GET", "/dashboard", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Roster Dashboard")
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	})
}

func TestServeMainApp(t *testing.T) {
	t.Run("missing index returns 404", func(t *testing.T) {
		handler := ServeMainApp(t.TempDir())

		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("serves index with security headers", func(t *testing.T) {
		webDir := t.TempDir()
		index := filepath.Join(webDir, "index.html")
		require.NoError(t, os.WriteFile(index, []byte("<html><body>RosterKit</body></html>"), 0644))

		handler := ServeMainApp(webDir)

		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "RosterKit")
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	})
}

func TestServeTestPage(t *testing.T) {
	handler := ServeTestPage()

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "RosterKit")
	assert.Contains(t, rec.Body.String(), "/api/health")
}
