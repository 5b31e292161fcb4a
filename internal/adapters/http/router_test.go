package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/voicehub/internal/adapters/chatdir"
	"github.com/dkeye/voicehub/internal/adapters/signal"
	"github.com/dkeye/voicehub/internal/app/orch"
	"github.com/dkeye/voicehub/internal/config"
	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/dkeye/voicehub/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *orch.Orchestrator) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Mode:       "test",
		Secret:     "test-secret",
		StaticPath: t.TempDir() + "/missing",
		Metrics:    config.MetricsConfig{Enabled: true, Path: "/metrics"},
		ICEServers: []config.ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}},
	}
	dir := chatdir.NewMemory(map[string][]string{"general": {"alice", "bob"}}, nil)
	hub := signal.NewHub()
	m := metrics.NewCollector("voicehub", prometheus.NewRegistry())
	o := orch.New(orch.Config{GracePeriod: time.Minute, RingTimeout: time.Minute}, dir, hub, m)
	m.Observe("voicehub", o.StateSource())
	t.Cleanup(o.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ctl := signal.NewSignalWSController(o, hub, signal.Options{})
	return SetupRouter(ctx, cfg, ctl, m), o
}

func get(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","connections":0}`, w.Body.String())

	w = get(r, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "voicehub_online_users 0")
}

func TestRouter_ICEServers(t *testing.T) {
	r, _ := newTestRouter(t)
	w := get(r, "/api/voice/ice-servers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stun:stun.example.org:3478")
}

func TestRouter_GuestIdentityIsStoredInCookie(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "/api/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	var first struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.NotEmpty(t, first.UserID)

	w = get(r, "/api/me", http.Header{"Cookie": {cookies[0].Name + "=" + cookies[0].Value}})
	var second struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.UserID, second.UserID)

	w = get(r, "/api/me", http.Header{headerUserID: {"alice"}})
	assert.Contains(t, w.Body.String(), `"user_id":"alice"`)
}

func TestRouter_SignalOverWebSocket(t *testing.T) {
	r, o := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	ws, resp, err := websocket.DefaultDialer.Dial(url, http.Header{headerUserID: {"alice"}, headerUsername: {"Alice"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, ws.ReadJSON(&env))
	assert.Equal(t, "whoami", env.Type)
	assert.Contains(t, string(env.Data), `"username":"Alice"`)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "join", "chat_id": "general"}))
	for env.Type != core.EventVoiceSessionState {
		require.NoError(t, ws.ReadJSON(&env))
	}

	w := get(r, "/api/voice/sessions/general", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap core.SessionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.Count)

	w = get(r, "/api/voice/sessions?chat_id=general&chat_id=random", nil)
	assert.JSONEq(t, `{"counts":{"general":1}}`, w.Body.String())

	w = get(r, "/api/presence/alice", nil)
	assert.JSONEq(t, `{"user_id":"alice","online":true}`, w.Body.String())

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return !o.IsOnline("alice") }, 2*time.Second, 10*time.Millisecond)

	w = get(r, "/api/voice/sessions/general", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RejectsInvalidIdentity(t *testing.T) {
	r, o := newTestRouter(t)

	w := get(r, "/api/me", http.Header{headerUserID: {strings.Repeat("x", domain.MaxUserIDLen+1)}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(r, "/api/me", http.Header{headerUserID: {"alice"}, headerUsername: {strings.Repeat("n", domain.MaxUsernameLen+1)}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(r, "/api/ws/signal", http.Header{headerUserID: {strings.Repeat("x", 100)}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, o.Registry.OnlineCount())
}
