package mcpserver

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marioser/dolibarr-mcp/auth"
	"github.com/marioser/dolibarr-mcp/catalog"
	"github.com/marioser/dolibarr-mcp/dispatch"
	"github.com/marioser/dolibarr-mcp/observe"
)

// DefaultName is the server name announced to clients.
const DefaultName = "dolibarr-mcp"

// Dispatcher runs catalog operations.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) (dispatch.Result, error)
	Catalog() *catalog.Catalog
}

// Options configures a Server.
type Options struct {
	Name         string
	Version      string
	Instructions string
	Logger       observe.Logger
}

// Server is the MCP tool surface over a Dispatcher.
type Server struct {
	mcp        *server.MCPServer
	dispatcher Dispatcher
	logger     observe.Logger
	tools      []mcp.Tool
}

// New creates a Server with one tool per catalog operation.
func New(d Dispatcher, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = observe.NopLogger()
	}

	serverOpts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	}
	if opts.Instructions != "" {
		serverOpts = append(serverOpts, server.WithInstructions(opts.Instructions))
	}

	s := &Server{
		mcp:        server.NewMCPServer(opts.Name, opts.Version, serverOpts...),
		dispatcher: d,
		logger:     opts.Logger,
	}

	cat := d.Catalog()
	for _, name := range cat.Names() {
		desc, _ := cat.Describe(name)
		tool := ToolFor(desc)
		s.tools = append(s.tools, tool)
		s.mcp.AddTool(tool, s.handler(name))
	}
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// Tools returns the registered tools in name order.
func (s *Server) Tools() []mcp.Tool {
	out := make([]mcp.Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.Call(ctx, name, req.GetArguments()), nil
	}
}

// Call dispatches one operation and renders the envelope.
func (s *Server) Call(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	if args == nil {
		args = map[string]any{}
	}
	if principal := auth.PrincipalFromContext(ctx); principal != "" {
		s.logger.Debug(ctx, "tool call", observe.F("operation", name), observe.F("principal", principal))
	}
	res, err := s.dispatcher.Dispatch(ctx, name, args)
	if err != nil {
		return toolResult(FailureEnvelope(err))
	}
	return toolResult(SuccessEnvelope(res))
}

// ServeStdio serves the protocol over in and out until ctx ends or in is
// closed. Nothing else may write to out.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info(ctx, "serving MCP over stdio", observe.F("tools", len(s.tools)))
	stdio := server.NewStdioServer(s.mcp)
	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
