package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/foomo/contentserver-pagecontext/pagecontext"
	"github.com/foomo/contentserver-pagecontext/service"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// httpRequestKey is a custom context key for storing the original HTTP request
type httpRequestKey struct{}

// withHTTPRequest adds the original HTTP request to the context
func withHTTPRequest(ctx context.Context, req *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, req)
}

// HTTPRequestFromContext extracts the original HTTP request from the context
// of a tool call that came in over HTTP.
func HTTPRequestFromContext(ctx context.Context) (*http.Request, bool) {
	req, ok := ctx.Value(httpRequestKey{}).(*http.Request)
	return req, ok
}

// httpContextFunc extracts the original HTTP request and adds it to the context
func httpContextFunc(ctx context.Context, r *http.Request) context.Context {
	return withHTTPRequest(ctx, r)
}

// McpHTTPSSEServer combines the MCP HTTP server with SSE, plain JSON and
// metrics endpoints
type McpHTTPSSEServer struct {
	mux       *http.ServeMux
	sseServer *MCPSSEServer
}

// NewMcpHTTPSSEServer mounts everything below endpoint, metrics on /metrics.
func NewMcpHTTPSSEServer(logger *zap.Logger, s *server.MCPServer, serviceInstance service.Service, endpoint string, gatherer prometheus.Gatherer, config *SSEServerConfig) *McpHTTPSSEServer {
	sseServer := NewMCPSSEServer(logger, serviceInstance, config)

	mux := http.NewServeMux()

	mcpHandler := server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath(endpoint),
		server.WithHTTPContextFunc(httpContextFunc),
	)
	mux.Handle(endpoint, mcpHandler)

	mux.HandleFunc(endpoint+"/context", contextHandler(logger, serviceInstance))
	mux.HandleFunc(endpoint+"/sse", sseServer.HandleSSE)
	mux.HandleFunc(endpoint+"/sse/context", sseServer.HandleContextSSE)
	mux.HandleFunc(endpoint+"/sse/clients", func(w http.ResponseWriter, r *http.Request) {
		clients := sseServer.GetConnectedClients()
		writeJSON(logger, w, map[string]interface{}{
			"connectedClients": len(clients),
			"clients":          clients,
		})
	})
	mux.HandleFunc(endpoint+"/sse/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(logger, w, sseServer.GetStats())
	})
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return &McpHTTPSSEServer{
		mux:       mux,
		sseServer: sseServer,
	}
}

// contextHandler resolves a posted page state and answers with JSON
func contextHandler(logger *zap.Logger, serviceInstance service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var state pagecontext.PageState
		if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		writeJSON(logger, w, serviceInstance.ResolveState(r.Context(), state))
	}
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Warn("failed to write response", zap.Error(err))
	}
}

// ServeHTTP implements http.Handler
func (s *McpHTTPSSEServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close stops the SSE server
func (s *McpHTTPSSEServer) Close() {
	s.sseServer.Close()
}
