package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zimage-studio/zimage-server/internal/app"
	"github.com/zimage-studio/zimage-server/internal/config"
)

func newTestServer(t *testing.T) (*Server, *app.App) {
	t.Helper()

	home := t.TempDir()
	cfg := &config.Config{
		Host:        "localhost",
		Port:        0,
		Environment: "test",
		ZImageHome:  home,
		AssetsDir:   filepath.Join(home, "assets"),
		ModelsDir:   filepath.Join(home, "models"),
	}

	a, err := app.NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	s, err := NewServer(cfg)
	require.NoError(t, err)
	s.SetupRoutes(a)

	return s, a
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.ginEngine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestStatusIdle(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "Idle", body["message"])
	assert.Equal(t, false, body["is_generating"])
}

func TestGenerateRejectsBadDimensions(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/generate", `{"prompt": "a cat", "height": 1023}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Height and Width must be divisible by 16.", decodeBody(t, w)["detail"])
}

func TestGenerateRejectsBadJSON(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/generate", `{"prompt": `)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateDefaultsPassValidation(t *testing.T) {
	s, _ := newTestServer(t)

	// Omitted fields fall back to 1024x1024x8 and reach the pipeline, which
	// has no worker attached in tests.
	w := doJSON(s, http.MethodPost, "/generate", `{"prompt": "a cat"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeBody(t, w)["detail"], "worker")
}

func TestGetSettings(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "Tongyi-MAI/Z-Image-Turbo", body["model_id"])
	assert.Equal(t, "", body["cache_dir"])
}

func TestUpdateSettings(t *testing.T) {
	s, a := newTestServer(t)

	cacheDir := filepath.Join(t.TempDir(), "hf-cache")
	payload, _ := json.Marshal(map[string]interface{}{
		"cache_dir":   cacheDir,
		"cpu_offload": true,
	})

	w := doJSON(s, http.MethodPost, "/settings/model-path", string(payload))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Settings saved. Model will reload on next generation.", body["message"])

	// The directory is created and the settings document updated.
	_, err := os.Stat(cacheDir)
	assert.NoError(t, err)

	saved := a.Settings.Get()
	assert.Equal(t, cacheDir, saved.CacheDir)
	assert.True(t, saved.CPUOffload)
	assert.Equal(t, cacheDir, a.Resolver.CacheDir())
}

func TestFileNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/file/missing.png", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFileServesArchivedAsset(t *testing.T) {
	s, a := newTestServer(t)

	require.NoError(t, os.MkdirAll(a.Config().AssetsDir, 0755))
	path := filepath.Join(a.Config().AssetsDir, "abc.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0644))

	w := doJSON(s, http.MethodGet, "/file/abc.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
}
