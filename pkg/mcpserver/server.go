// Package mcpserver exposes the marketplace tools and nostr:// resources
// over the Model Context Protocol, on stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/synvya/nostrmarket/pkg/errmodel"
	"github.com/synvya/nostrmarket/pkg/market"
	"github.com/synvya/nostrmarket/pkg/tools"
)

// Config wires the MCP surface.
type Config struct {
	Name     string
	Version  string
	Registry *tools.Registry
	Resolver *market.Resolver
	// Allowed grants tool permissions to MCP callers. The MCP surface is
	// trusted local tooling, so it normally carries the admin grant.
	Allowed map[string]bool
}

// resourceTemplates are the URI shapes the resolver understands.
var resourceTemplates = []struct {
	uriTemplate string
	name        string
	description string
}{
	{"nostr://{pubkey}/profile", "profile", "Most recent profile for a pubkey"},
	{"nostr://{pubkey}/stalls", "stalls", "All stalls for a merchant"},
	{"nostr://{pubkey}/stall/{d_tag}", "stall", "One stall by identifier"},
	{"nostr://{pubkey}/catalog", "catalog", "All products for a merchant"},
	{"nostr://{pubkey}/product/{d_tag}", "product", "One product by identifier"},
}

// New builds the MCP server with every registered tool and the resource
// templates attached.
func New(cfg Config) (*mcp.Server, error) {
	if cfg.Name == "" {
		cfg.Name = "nostrmarket"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil)

	for _, d := range cfg.Registry.Descriptors() {
		schema := new(jsonschema.Schema)
		if err := json.Unmarshal(d.InputSchema, schema); err != nil {
			return nil, fmt.Errorf("tool %q schema: %w", d.Name, err)
		}
		name := d.Name
		mcp.AddTool(server, &mcp.Tool{
			Name:        name,
			Description: d.Description,
			InputSchema: schema,
		}, func(ctx context.Context, _ *mcp.CallToolRequest, in map[string]any) (*mcp.CallToolResult, map[string]any, error) {
			out, err := cfg.Registry.SafeInvoke(ctx, name, in, cfg.Allowed)
			if err != nil {
				return &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{&mcp.TextContent{Text: errmodel.From(err).Error()}},
				}, nil, nil
			}
			body, err := json.Marshal(out)
			if err != nil {
				return nil, nil, err
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
			}, out, nil
		})
	}

	for _, rt := range resourceTemplates {
		server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: rt.uriTemplate,
			Name:        rt.name,
			Description: rt.description,
			MIMEType:    "application/json",
		}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			uri := req.Params.URI
			data, err := cfg.Resolver.GetResourceData(ctx, uri)
			if err != nil {
				if errmodel.IsNotFound(err) {
					return nil, mcp.ResourceNotFoundError(uri)
				}
				return nil, err
			}
			body, err := json.Marshal(data)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
				{URI: uri, MIMEType: "application/json", Text: string(body)},
			}}, nil
		})
	}

	return server, nil
}

// RunStdio serves the MCP protocol on stdin/stdout until ctx is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the MCP protocol over streamable HTTP.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}
