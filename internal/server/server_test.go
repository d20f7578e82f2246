package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tessera/internal/configuration"
	"github.com/conneroisu/tessera/internal/metrics"
	"github.com/conneroisu/tessera/internal/pipeline"
	"github.com/conneroisu/tessera/internal/processors"
	"github.com/conneroisu/tessera/internal/renderer"
	"github.com/conneroisu/tessera/internal/store"
	"github.com/conneroisu/tessera/internal/types"
	"github.com/conneroisu/tessera/internal/watcher"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	s := store.NewMemoryStore(
		types.ComponentNode{
			TypeName:  "site/components/button",
			SuperType: "site/components/base",
			HasConfig: true,
			Config: map[string][]types.Value{
				"categories":                        types.Values("content", "styling"),
				processors.ContainerClassesProperty: types.Values("btn"),
				"color":                             types.Values("red"),
			},
		},
		types.ComponentNode{
			TypeName:  "site/components/base",
			HasConfig: true,
			Config: map[string][]types.Value{
				"categories": types.Values("component"),
				"color":      types.Values("blue"),
			},
		},
	)

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	resolver := configuration.NewResolver(s, configuration.WithMetrics(recorder))
	engine := pipeline.NewEngine(pipeline.WithMetrics(recorder))
	require.NoError(t, engine.Register(processors.Defaults(nil)...))
	r := renderer.NewComponentRenderer(engine, resolver, renderer.WithMetrics(recorder))

	srv := New(Config{Host: "127.0.0.1", Port: 0, Metrics: metrics.HTTPHandler(reg)}, r, resolver, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleModel(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/model/site/components/button?path=/content/home/cta&prop=label=Go&prop=jcr:uuid=1")
	require.Equal(t, http.StatusOK, status)

	content := body["content"].(map[string]any)
	assert.Equal(t, "Go", content["label"])
	assert.NotContains(t, content, "jcr:uuid")
	assert.Equal(t, "/content/home/cta", content["path"])
	assert.Equal(t, "btn", body["styling"].(map[string]any)["classes"])
	assert.Equal(t, "red", body["config"].(map[string]any)["color"])
}

func TestHandleModel_Keys(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/model/site/components/button?keys=styling.classes,%20component.appName")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"styling.classes": "btn", "component.appName": "site"}, body)
}

func TestHandleModel_InvalidType(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/model/site/a&b")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["error"])
}

func TestHandleRender(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/render/site/components/button?path=/content/home/cta")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.True(t, strings.HasPrefix(string(data), `<div class="btn" data-type="site/components/button"`))
}

func TestHandleConfig(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/config/site/components/button")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "red", body["color"])

	status, body = getJSON(t, ts.URL+"/config/site/components/button?mode=merge&flatten=false")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"red", "blue"}, body["color"])
	assert.Equal(t, []any{"content", "styling", "component"}, body["categories"])

	status, body = getJSON(t, ts.URL+"/config/site/components/button?mode=shallow")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "red", body["color"])

	status, _ = getJSON(t, ts.URL+"/config/site/components/button?mode=deep")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = getJSON(t, ts.URL+"/config/site/components/button?flatten=maybe")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = getJSON(t, ts.URL+"/config/site/components/missing")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandleHealthAndStats(t *testing.T) {
	_, ts := newTestServer(t)

	status, body := getJSON(t, ts.URL+"/health")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["healthy"])

	getJSON(t, ts.URL+"/config/site/components/button")
	getJSON(t, ts.URL+"/config/site/components/button")
	status, body = getJSON(t, ts.URL+"/stats")
	require.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, body["hits"].(float64), float64(1))
	assert.Equal(t, float64(1), body["entries"])
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	getJSON(t, ts.URL+"/model/site/components/button")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(data), "tessera_chain_cache_lookups_total")
	assert.Contains(t, string(data), "tessera_render_duration_seconds")
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func TestWebSocket_InvalidationBroadcast(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dial(t, ts)
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	notifier := watcher.NewNotifier(nil)
	require.NoError(t, notifier.Register("live-reload", srv))
	notifier.Notify(context.Background(), []watcher.ChangeEvent{{Path: "site/components/button/component.yaml"}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	var msg UpdateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageInvalidated, msg.Type)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestWebSocket_ClientDisconnect(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dial(t, ts)
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return srv.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestShutdown(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dial(t, ts)
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.Equal(t, 0, srv.ClientCount())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	assert.Error(t, err)

	resp, err := http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	assert.ErrorIs(t, srv.Start(context.Background()), http.ErrServerClosed)
}

func TestStart_StopsWithContext(t *testing.T) {
	srv := New(Config{Host: "127.0.0.1", Port: 0}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestAddr(t *testing.T) {
	srv := New(Config{Host: "localhost", Port: 8080}, nil, nil, nil)
	assert.Equal(t, "localhost:8080", srv.Addr())
}

func TestCORS(t *testing.T) {
	srv := New(Config{AllowedOrigins: []string{"*.example.com"}}, nil, nil, nil)
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), srv.cors)

	req := httptest.NewRequest(http.MethodGet, "/model/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/model/x", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/model/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecoverPanics(t *testing.T) {
	srv := New(Config{}, nil, nil, nil)
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), srv.logRequests, srv.recoverPanics)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/render/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	handler := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), mark("inner"))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
