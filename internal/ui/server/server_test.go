package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	coreerrors "rds/internal/core/errors"
	"rds/internal/core/ports"
	"rds/internal/engine/hmr"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu       sync.Mutex
	routes   map[string]ports.Response
	errs     map[string]error
	observed []string
	health   ports.HealthStatus
}

func (f *fakeService) Route(_ context.Context, path string, _ url.Values) (ports.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[path]; ok {
		return ports.Response{}, err
	}
	if resp, ok := f.routes[path]; ok {
		return resp, nil
	}
	return ports.Response{Kind: ports.ResponseNotFound}, nil
}

func (f *fakeService) Devtools(classes []string) ports.Response {
	f.mu.Lock()
	f.observed = append(f.observed, classes...)
	f.mu.Unlock()
	return ports.Response{Kind: ports.ResponseHandled, Content: []byte(`{"changed":true}`), MIME: "application/json"}
}

func (f *fakeService) Greeting() []hmr.Message {
	return []hmr.Message{hmr.Connected()}
}

func (f *fakeService) Health(context.Context) ports.HealthStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health
}

func newTestServer(t *testing.T, svc *fakeService, opts Options) (*httptest.Server, *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub()
	srv := New(ctx, svc, hub, opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hub.CloseAll()
		ts.Close()
	})
	return ts, hub
}

func noRedirect(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

func TestServer_Route(t *testing.T) {
	svc := &fakeService{
		routes: map[string]ports.Response{
			"/src/main.tsx": {Kind: ports.ResponseFile, Content: []byte("export {}"), MIME: "text/javascript", Cacheable: true},
			"/index.html":   {Kind: ports.ResponseFile, Content: []byte("<html></html>"), MIME: "text/html"},
			"/@deps/react":  {Kind: ports.ResponseRedirect, Location: "https://esm.sh/react@18.3.1?dev"},
		},
		errs: map[string]error{
			"/src/broken.tsx": coreerrors.Newf(coreerrors.CodeSyntaxError, "Unexpected token").
				WithContext(coreerrors.CtxPath, "/proj/src/broken.tsx:3:7").
				WithContext(coreerrors.CtxFrame, "3 | const = 1"),
		},
	}
	ts, _ := newTestServer(t, svc, Options{DevtoolsRate: 5})
	client := &http.Client{CheckRedirect: noRedirect}

	tests := []struct {
		name         string
		path         string
		status       int
		cacheControl string
		location     string
		body         string
	}{
		{name: "hashed module", path: "/src/main.tsx?h=abc", status: http.StatusOK, cacheControl: immutable, body: "export {}"},
		{name: "document", path: "/index.html", status: http.StatusOK, cacheControl: "no-cache", body: "<html></html>"},
		{name: "dependency", path: "/@deps/react", status: http.StatusFound, location: "https://esm.sh/react@18.3.1?dev"},
		{name: "missing", path: "/nope.png", status: http.StatusNotFound},
		{name: "compile error", path: "/src/broken.tsx", status: http.StatusInternalServerError, body: "Unexpected token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.cacheControl != "" {
				assert.Equal(t, tt.cacheControl, resp.Header.Get("Cache-Control"))
			}
			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get("Location"))
			}
			if tt.body != "" {
				assert.Contains(t, string(body), tt.body)
			}
		})
	}
}

func TestServer_CompileErrorShowsFrame(t *testing.T) {
	svc := &fakeService{
		errs: map[string]error{
			"/src/a.ts": coreerrors.Newf(coreerrors.CodeSyntaxError, "Unexpected token").
				WithContext(coreerrors.CtxPath, "/proj/src/a.ts:1:1").
				WithContext(coreerrors.CtxFrame, "1 | let = 2"),
		},
	}
	ts, _ := newTestServer(t, svc, Options{DevtoolsRate: 5})

	resp, err := http.Get(ts.URL + "/src/a.ts")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	text := string(body)
	assert.True(t, strings.HasPrefix(text, "/proj/src/a.ts:1:1\n"), text)
	assert.Contains(t, text, "1 | let = 2")
}

func TestServer_Devtools(t *testing.T) {
	svc := &fakeService{}
	ts, _ := newTestServer(t, svc, Options{DevtoolsRate: 1})

	post := func() *http.Response {
		resp, err := http.Post(ts.URL+DevtoolsPath, "application/json", strings.NewReader(`{"classes":["p-4","flex"]}`))
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	first := post()
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, "application/json", first.Header.Get("Content-Type"))

	second := post()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	svc.mu.Lock()
	assert.Equal(t, []string{"p-4", "flex"}, svc.observed)
	svc.mu.Unlock()
}

func TestServer_DevtoolsRejectsMalformedBody(t *testing.T) {
	ts, _ := newTestServer(t, &fakeService{}, Options{DevtoolsRate: 5})

	resp, err := http.Post(ts.URL+DevtoolsPath, "application/json", strings.NewReader(`{"classes":`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	svc := &fakeService{health: ports.HealthStatus{Status: "up", Modules: 3}}
	ts, _ := newTestServer(t, svc, Options{DevtoolsRate: 5})

	resp, err := http.Get(ts.URL + HealthPath)
	require.NoError(t, err)
	var got ports.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, got.Modules)

	svc.mu.Lock()
	svc.health = ports.HealthStatus{Status: "degraded", Failing: true}
	svc.mu.Unlock()
	resp, err = http.Get(ts.URL + HealthPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	ts, _ := newTestServer(t, &fakeService{}, Options{DevtoolsRate: 5, Metrics: true})

	resp, err := http.Get(ts.URL + MetricsPath)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "rds_hmr_clients")

	off, _ := newTestServer(t, &fakeService{}, Options{DevtoolsRate: 5})
	resp, err = http.Get(off.URL + MetricsPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func readMessage(t *testing.T, conn *websocket.Conn) hmr.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg hmr.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_GreetsAndBroadcasts(t *testing.T) {
	ts, hub := newTestServer(t, &fakeService{}, Options{DevtoolsRate: 5})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + HMRPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, hmr.TypeConnected, readMessage(t, conn).Type)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	sent := hub.Broadcast(hmr.Update([]string{"/src/App.tsx?h=1"}))
	assert.Equal(t, 1, sent)

	msg := readMessage(t, conn)
	assert.Equal(t, hmr.TypeUpdate, msg.Type)
	assert.Equal(t, []string{"/src/App.tsx?h=1"}, msg.Paths)
}

func TestHub_ForgetsClosedClients(t *testing.T) {
	ts, hub := newTestServer(t, &fakeService{}, Options{DevtoolsRate: 5})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + HMRPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.Broadcast(hmr.Reload()))
}
