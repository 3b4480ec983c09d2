package mcptools

import (
	"context"
	"errors"
	"io"

	"govassist/app/service/linker"
	"govassist/app/service/session"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	serverName    = "govassist"
	serverVersion = "1.0.0"
)

// Service exposes the assistant as MCP tools.
type Service struct {
	sessions *session.Service
	linker   *linker.Linker
	server   *server.MCPServer
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*session.Service](di),
		do.MustInvoke[*linker.Linker](di),
	), nil
}

func NewService(sessions *session.Service, lnk *linker.Linker) *Service {
	s := &Service{
		sessions: sessions,
		linker:   lnk,
		server: server.NewMCPServer(serverName, serverVersion,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}

	s.server.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Ask the city services assistant a question. Pass the returned session_id to continue the conversation."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The resident's message")),
		mcp.WithString("session_id", mcp.Description("Session to continue, a new one is started when empty")),
	), s.ask)

	s.server.AddTool(mcp.NewTool("service_chain",
		mcp.WithDescription("List the steps needed to obtain a city service, prerequisites first."),
		mcp.WithString("service_id", mcp.Required(), mcp.Description("Service id, for example building_permit")),
	), s.serviceChain)

	s.server.AddTool(mcp.NewTool("related_services",
		mcp.WithDescription("List services related to a city service."),
		mcp.WithString("service_id", mcp.Required(), mcp.Description("Service id, for example building_permit")),
	), s.relatedServices)

	s.server.AddTool(mcp.NewTool("session_summary",
		mcp.WithDescription("Summarize what is known about a conversation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id returned by ask")),
	), s.sessionSummary)

	return s
}

// Serve speaks MCP over the given streams until ctx is done or in is closed.
func (s *Service) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if err := server.NewStdioServer(s.server).Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return oops.In("mcptools").Wrapf(err, "failed to serve stdio")
	}

	return nil
}

type askResult struct {
	SessionID string   `json:"session_id"`
	Reply     string   `json:"reply"`
	Kind      string   `json:"kind"`
	Intent    string   `json:"intent,omitempty"`
	Strategy  string   `json:"strategy,omitempty"`
	Suggested []string `json:"suggested,omitempty"`
}

func (s *Service) ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := req.GetString("session_id", "")
	if id == "" {
		info, err := s.sessions.Create()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id = info.ID
	}

	turn, err := s.sessions.Turn(ctx, id, message)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := askResult{
		SessionID: id,
		Reply:     turn.Reply,
		Kind:      string(turn.Kind),
		Intent:    turn.Intent,
	}
	if turn.Decision != nil {
		result.Strategy = string(turn.Decision.Strategy)
	}
	for _, suggestion := range turn.Suggestions {
		result.Suggested = append(result.Suggested, suggestion.Text)
	}

	return jsonResult(result)
}

func (s *Service) serviceChain(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("service_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	steps, err := s.linker.GenerateServiceChain(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(steps)
}

func (s *Service) relatedServices(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("service_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	related, err := s.linker.SuggestRelatedServices(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type item struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	items := make([]item, 0, len(related))
	for _, svc := range related {
		items = append(items, item{ID: svc.ID, Name: svc.Name, URL: svc.URL})
	}

	return jsonResult(items)
}

func (s *Service) sessionSummary(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary, err := s.sessions.Summary(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(summary)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	text, err := sonic.MarshalString(v)
	if err != nil {
		return nil, oops.In("mcptools").Wrapf(err, "failed to encode result")
	}

	return mcp.NewToolResultText(text), nil
}
