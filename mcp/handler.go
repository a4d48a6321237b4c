package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/foomo/contentserver-pagecontext/pagecontext"
	"github.com/foomo/contentserver-pagecontext/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const Version = "0.1.0"

type ResolveContextRequest struct {
	State pagecontext.PageState `json:"state"` // Snapshot of the current page
}

type ResolvePathContextRequest struct {
	Path string `json:"path"` // Content server URI
}

type ResolveURLContextRequest struct {
	URL      string `json:"url"`      // Absolute URL or path below the site base URL
	Selector string `json:"selector"` // CSS selector of the content converted to markdown
}

// NewServer creates a new MCP server with the page context tools. The path
// lookup tool is only registered when withPaths is set, as it needs a
// content server.
func NewServer(logger *zap.Logger, serviceInstance service.Service, withPaths bool) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := server.NewMCPServer(
		"Page Context MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	resolveContextTool := mcp.NewTool("resolveContext",
		mcp.WithDescription("Classify a page into its ordered template context tags, most specific first"),
		mcp.WithObject("state",
			mcp.Required(),
			mcp.Description(`Page state, e.g. {"kind":"archive","archiveKind":"category","term":{"id":7,"slug":"news","taxonomy":"category"}}`),
		),
	)
	s.AddTool(resolveContextTool, mcp.NewTypedToolHandler(getResolveContextHandler(logger, serviceInstance)))

	resolveURLContextTool := mcp.NewTool("resolveURLContext",
		mcp.WithDescription("Scrape a rendered page, infer its page state from the body classes and resolve its context"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page, or a path below the configured base URL"),
		),
		mcp.WithString("selector",
			mcp.Description("CSS selector of the content to convert to markdown (e.g. 'main', '#content')"),
		),
	)
	s.AddTool(resolveURLContextTool, mcp.NewTypedToolHandler(getResolveURLContextHandler(logger, serviceInstance)))

	if withPaths {
		resolvePathContextTool := mcp.NewTool("resolvePathContext",
			mcp.WithDescription("Look a path up on the content server and resolve its context"),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("The content server URI"),
			),
		)
		s.AddTool(resolvePathContextTool, mcp.NewTypedToolHandler(getResolvePathContextHandler(logger, serviceInstance)))
	}

	return s
}

func getResolveContextHandler(logger *zap.Logger, serviceInstance service.Service) func(ctx context.Context, request mcp.CallToolRequest, args ResolveContextRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ResolveContextRequest) (*mcp.CallToolResult, error) {
		logToolCall(ctx, logger, request)
		return jsonResult(serviceInstance.ResolveState(ctx, args.State))
	}
}

func getResolvePathContextHandler(logger *zap.Logger, serviceInstance service.Service) func(ctx context.Context, request mcp.CallToolRequest, args ResolvePathContextRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ResolvePathContextRequest) (*mcp.CallToolResult, error) {
		logToolCall(ctx, logger, request, zap.String("path", args.Path))
		if args.Path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		pc, err := serviceInstance.ResolvePath(ctx, args.Path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to resolve path: %v", err)), nil
		}
		return jsonResult(pc)
	}
}

func getResolveURLContextHandler(logger *zap.Logger, serviceInstance service.Service) func(ctx context.Context, request mcp.CallToolRequest, args ResolveURLContextRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ResolveURLContextRequest) (*mcp.CallToolResult, error) {
		logToolCall(ctx, logger, request, zap.String("url", args.URL))
		if args.URL == "" {
			return mcp.NewToolResultError("url is required"), nil
		}
		doc, err := serviceInstance.ResolveURL(ctx, args.URL, args.Selector)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to resolve url: %v", err)), nil
		}
		return jsonResult(doc)
	}
}

// logToolCall adds the remote address for calls that came in over HTTP.
func logToolCall(ctx context.Context, logger *zap.Logger, request mcp.CallToolRequest, fields ...zap.Field) {
	fields = append(fields, zap.String("tool", request.Params.Name))
	if req, ok := HTTPRequestFromContext(ctx); ok {
		fields = append(fields, zap.String("remoteAddr", req.RemoteAddr))
	}
	logger.Debug("tool call", fields...)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseBytes)), nil
}
