package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lights-api/internal/domain"
	"lights-api/internal/handler"
	"lights-api/internal/homeassistant"
	"lights-api/internal/logstore"
	"lights-api/internal/service"
	"lights-api/internal/storage"
)

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Info(string, map[string]interface{}) {}
func (nopLogger) Warn(string, map[string]interface{}) {}
func (nopLogger) Error(string, error, map[string]interface{}) {}
func (l nopLogger) WithContext(context.Context) domain.Logger { return l }

// fakeHomeAssistant serves the two API routes the gateway consumes and
// records how many service calls it received.
type fakeHomeAssistant struct {
	state        string
	serviceCalls int
}

func (f *fakeHomeAssistant) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/services/light/turn_on", func(w http.ResponseWriter, r *http.Request) {
		f.serviceCalls++
		f.state = "on"
		w.Write([]byte(`[{"entity_id":"light.hue_color_lamp_2","state":"on"}]`))
	})
	mux.HandleFunc("/api/services/light/turn_off", func(w http.ResponseWriter, r *http.Request) {
		f.serviceCalls++
		f.state = "off"
		w.Write([]byte(`[{"entity_id":"light.hue_color_lamp_2","state":"off"}]`))
	})
	mux.HandleFunc("/api/states/light.hue_color_lamp_2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"entity_id":"light.hue_color_lamp_2","state":%q}`, f.state)
	})
	return mux
}

type env struct {
	router *gin.Engine
	ha     *fakeHomeAssistant
}

func newEnv(t *testing.T, token string) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ha := &fakeHomeAssistant{state: "off"}
	upstream := httptest.NewServer(ha.handler())
	t.Cleanup(upstream.Close)

	log := nopLogger{}
	controller := homeassistant.NewClient(upstream.URL, token, log)
	lights := service.NewLights(controller, token, "light.hue_color_lamp_2", log)
	activity := logstore.NewFileStore(filepath.Join(t.TempDir(), "data", "lights-log.json"), log)
	store := storage.NewMemoryStore(log)

	h := handler.NewHandlers(lights, activity, store, handler.RateLimits{
		ToggleLimit: 5,
		LogLimit:    10,
		Window:      time.Minute,
	}, log)

	router := gin.New()
	h.SetupRoutes(router)

	return &env{router: router, ha: ha}
}

func (e *env) post(path, ip string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", ip)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestE2E_ToggleThenQueryState(t *testing.T) {
	env := newEnv(t, "test-token")

	w := env.post("/lights", "203.0.113.1", gin.H{"action": "turn_on"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"action":"turn_on"`)

	w = env.get("/lights")
	require.Equal(t, http.StatusOK, w.Code)

	var state struct {
		Success  bool   `json:"success"`
		LightsOn bool   `json:"lightsOn"`
		State    string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.True(t, state.Success)
	assert.True(t, state.LightsOn)
	assert.Equal(t, "on", state.State)
}

func TestE2E_ToggleRateLimitEnforced(t *testing.T) {
	env := newEnv(t, "test-token")

	for i := 0; i < 5; i++ {
		w := env.post("/lights", "203.0.113.2", gin.H{"action": "turn_on"})
		require.Equal(t, http.StatusOK, w.Code, "toggle %d", i+1)
	}

	w := env.post("/lights", "203.0.113.2", gin.H{"action": "turn_off"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// The throttled toggle never reached Home Assistant.
	assert.Equal(t, 5, env.ha.serviceCalls)

	// The state query path stays open.
	assert.Equal(t, http.StatusOK, env.get("/lights").Code)
}

func TestE2E_MissingTokenFailsWithoutUpstreamCall(t *testing.T) {
	env := newEnv(t, "")

	w := env.post("/lights", "203.0.113.3", gin.H{"action": "turn_on"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "token not configured")
	assert.Zero(t, env.ha.serviceCalls)
}

func TestE2E_LogAppendAndRead(t *testing.T) {
	env := newEnv(t, "test-token")

	w := env.post("/lights/log", "203.0.113.4", gin.H{
		"action":    "turned ON the lights",
		"visitor":   "Alice",
		"timestamp": "2024-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.get("/lights/log")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool              `json:"success"`
		Logs    []domain.LogEntry `json:"logs"`
		Total   int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "Alice", resp.Logs[0].Visitor)
	assert.Equal(t, "turned ON the lights", resp.Logs[0].Action)
}

func TestE2E_LogRateLimitTenPerWindow(t *testing.T) {
	env := newEnv(t, "test-token")
	ip := "203.0.113.5"

	entry := gin.H{
		"action":    "toggled",
		"visitor":   "Bob",
		"timestamp": "2024-01-01T00:00:00Z",
	}

	for i := 0; i < 10; i++ {
		w := env.post("/lights/log", ip, entry)
		require.Equal(t, http.StatusOK, w.Code, "append %d", i+1)
	}

	w := env.post("/lights/log", ip, entry)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Reading stays unlimited and reports the capped total.
	w = env.get("/lights/log")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":10`)
}

func TestE2E_LogValidationRejectedBeforeIO(t *testing.T) {
	env := newEnv(t, "test-token")

	w := env.post("/lights/log", "203.0.113.6", gin.H{"visitor": "Eve"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.get("/lights/log")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)
}
