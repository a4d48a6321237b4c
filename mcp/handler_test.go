package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foomo/contentserver-pagecontext/pagecontext"
	"github.com/foomo/contentserver-pagecontext/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestService() service.Service {
	return service.NewService(service.SiteSettings{ContentSelector: "main"})
}

func callRequest(name string, args interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Request: mcp.Request{
			Method: "tools/call",
		},
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestNewServer(t *testing.T) {
	server := NewServer(zap.NewNop(), newTestService(), false)
	require.NotNil(t, server)
}

func TestResolveContextHandler(t *testing.T) {
	args := ResolveContextRequest{
		State: pagecontext.PageState{
			Kind:         pagecontext.KindSingular,
			SingularKind: pagecontext.SingularSingle,
			Post:         &pagecontext.Post{ID: 42, Type: "post", Slug: "Hello-World"},
		},
	}
	handler := getResolveContextHandler(zap.NewNop(), newTestService())
	result, err := handler(context.Background(), callRequest("resolveContext", args), args)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var response struct {
		Context []string `json:"context"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, []string{"single-post-hello-world", "single-post", "single", "singular"}, response.Context)
}

func TestResolveURLContextHandler(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body class="home blog"><main>Latest posts</main></body></html>`))
	}))
	defer site.Close()

	handler := getResolveURLContextHandler(zap.NewNop(), newTestService())
	args := ResolveURLContextRequest{URL: site.URL + "/"}
	result, err := handler(context.Background(), callRequest("resolveURLContext", args), args)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"context":["front-page","home"]`)
}

func TestHandlerValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	urlArgs := ResolveURLContextRequest{}
	result, err := getResolveURLContextHandler(zap.NewNop(), s)(ctx, callRequest("resolveURLContext", urlArgs), urlArgs)
	require.NoError(t, err)
	assert.True(t, result.IsError, "expected error result for missing url")

	pathArgs := ResolvePathContextRequest{}
	result, err = getResolvePathContextHandler(zap.NewNop(), s)(ctx, callRequest("resolvePathContext", pathArgs), pathArgs)
	require.NoError(t, err)
	assert.True(t, result.IsError, "expected error result for missing path")

	pathArgs.Path = "/news"
	result, err = getResolvePathContextHandler(zap.NewNop(), s)(ctx, callRequest("resolvePathContext", pathArgs), pathArgs)
	require.NoError(t, err)
	assert.True(t, result.IsError, "expected error result without a content server")
}

func TestResolveContextRequestUnmarshal(t *testing.T) {
	var req ResolveContextRequest
	require.NoError(t, json.Unmarshal([]byte(`{"state":{"kind":"archive","archiveKind":"date"}}`), &req))
	assert.Equal(t, pagecontext.Context{"date", "archive"}, pagecontext.GetContext(req.State))
}

func newTestHTTPServer(t *testing.T) (*McpHTTPSSEServer, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := service.NewService(service.SiteSettings{}, service.WithRegisterer(reg))
	httpServer := NewMcpHTTPSSEServer(zap.NewNop(), NewServer(zap.NewNop(), s, false), s, "/mcp", reg, nil)
	t.Cleanup(httpServer.Close)
	return httpServer, reg
}

func TestContextEndpoint(t *testing.T) {
	httpServer, _ := newTestHTTPServer(t)

	rec := httptest.NewRecorder()
	httpServer.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp/context", strings.NewReader(`{"kind":"search"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":{"kind":"search"},"context":["search"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	httpServer.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp/context", strings.NewReader(`{"kind":"bogus"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	httpServer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp/context", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestContextSSEEndpoint(t *testing.T) {
	httpServer, _ := newTestHTTPServer(t)

	rec := httptest.NewRecorder()
	httpServer.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp/sse/context", strings.NewReader(`{"kind":"not-found"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	var events []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	assert.Equal(t, []string{"context_start", "context_result", "context_complete"}, events)
	assert.Contains(t, body, `"context":["404"]`)
}

// readSSEEvent reads up to the next blank line and returns the event name
// and data of the block.
func readSSEEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if name != "" {
				return name, data
			}
			continue
		}
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			name = v
		} else if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
		}
	}
}

func TestSSESubscriberReceivesBroadcast(t *testing.T) {
	s := service.NewService(service.SiteSettings{})
	httpServer := NewMcpHTTPSSEServer(zap.NewNop(), NewServer(zap.NewNop(), s, false), s, "/mcp", nil, &SSEServerConfig{
		KeepaliveInterval: 20 * time.Millisecond,
		BufferSize:        10,
	})
	site := httptest.NewServer(httpServer)
	defer site.Close()
	defer httpServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site.URL+"/mcp/sse", nil)
	require.NoError(t, err)
	resp, err := site.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, data := readSSEEvent(t, reader)
	require.Equal(t, "connected", name)
	assert.Contains(t, data, "clientID")

	rec := httptest.NewRecorder()
	httpServer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp/sse/stats", nil))
	assert.Contains(t, rec.Body.String(), `"connectedClients":1`)

	post, err := site.Client().Post(site.URL+"/mcp/sse/context", "application/json", strings.NewReader(`{"kind":"search"}`))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, post.Body)
	_ = post.Body.Close()

	seen := map[string]bool{}
	for !seen["context_result"] || !seen["keepalive"] {
		name, data = readSSEEvent(t, reader)
		seen[name] = true
		if name == "context_result" {
			assert.Contains(t, data, `"context":["search"]`)
		}
	}
}

func TestToolCallLogsRemoteAddress(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := getResolveContextHandler(zap.New(core), newTestService())
	args := ResolveContextRequest{State: pagecontext.PageState{Kind: pagecontext.KindSearch}}

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.RemoteAddr = "192.0.2.7:4711"
	_, err := handler(httpContextFunc(context.Background(), req), callRequest("resolveContext", args), args)
	require.NoError(t, err)
	_, err = handler(context.Background(), callRequest("resolveContext", args), args)
	require.NoError(t, err)

	entries := logs.FilterMessage("tool call").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "resolveContext", entries[0].ContextMap()["tool"])
	assert.Equal(t, "192.0.2.7:4711", entries[0].ContextMap()["remoteAddr"])
	assert.NotContains(t, entries[1].ContextMap(), "remoteAddr")
}

func TestStatsAndMetricsEndpoints(t *testing.T) {
	httpServer, _ := newTestHTTPServer(t)

	rec := httptest.NewRecorder()
	httpServer.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp/context", strings.NewReader(`{"kind":"home"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	httpServer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp/sse/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, Version, stats["serverVersion"])
	assert.EqualValues(t, 0, stats["connectedClients"])

	rec = httptest.NewRecorder()
	httpServer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pagecontext_resolutions_total{kind="home"} 1`)
}

func TestHTTPRequestFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	got, ok := HTTPRequestFromContext(httpContextFunc(context.Background(), req))
	require.True(t, ok)
	assert.Same(t, req, got)

	_, ok = HTTPRequestFromContext(context.Background())
	assert.False(t, ok)
}
