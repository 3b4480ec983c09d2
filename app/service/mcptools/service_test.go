package mcptools

import (
	"context"
	"testing"

	"govassist/app/config"
	"govassist/app/service/catalog"
	"govassist/app/service/conversation"
	"govassist/app/service/lexicon"
	"govassist/app/service/linker"
	"govassist/app/service/memory"
	"govassist/app/service/session"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTurner struct{}

func (echoTurner) ProcessTurn(_ context.Context, mem *memory.Memory, text string) conversation.TurnResult {
	mem.AddMessage(memory.Message{Role: memory.RoleUser, Text: text})

	return conversation.TurnResult{
		Reply: "echo: " + text,
		Kind:  conversation.KindAnswer,
	}
}

func newTestTools(t *testing.T) *Service {
	t.Helper()

	cfg := config.Default()

	di := do.New()
	t.Cleanup(func() { _ = di.Shutdown() })

	do.ProvideValue(di, cfg)
	do.Provide(di, func(*do.Injector) (*lexicon.Library, error) {
		return lexicon.Default()
	})
	do.Provide(di, func(*do.Injector) (*catalog.Catalog, error) {
		return catalog.Default()
	})
	do.Provide(di, memory.New)
	do.Provide(di, linker.New)
	do.Provide(di, func(di *do.Injector) (*session.Service, error) {
		return session.NewService(cfg.Session, do.MustInvoke[*memory.Service](di), echoTurner{}), nil
	})
	do.Provide(di, New)

	return do.MustInvoke[*Service](di)
}

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()

	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestAskStartsAndContinuesSession(t *testing.T) {
	s := newTestTools(t)
	ctx := context.Background()

	res, err := s.ask(ctx, request(map[string]any{"message": "pay my water bill"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var first askResult
	require.NoError(t, sonic.UnmarshalString(resultText(t, res), &first))
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, "echo: pay my water bill", first.Reply)
	assert.Equal(t, "answer", first.Kind)

	res, err = s.ask(ctx, request(map[string]any{
		"message":    "and trash pickup",
		"session_id": first.SessionID,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var second askResult
	require.NoError(t, sonic.UnmarshalString(resultText(t, res), &second))
	assert.Equal(t, first.SessionID, second.SessionID)

	res, err = s.sessionSummary(ctx, request(map[string]any{"session_id": first.SessionID}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var summary memory.Summary
	require.NoError(t, sonic.UnmarshalString(resultText(t, res), &summary))
	assert.Equal(t, 2, summary.MessageCount)
}

func TestAskErrors(t *testing.T) {
	s := newTestTools(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing message", map[string]any{}},
		{"unknown session", map[string]any{"message": "hi", "session_id": "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.ask(ctx, request(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestServiceChainTool(t *testing.T) {
	s := newTestTools(t)
	ctx := context.Background()

	res, err := s.serviceChain(ctx, request(map[string]any{"service_id": "building_permit"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var steps []linker.Step
	require.NoError(t, sonic.UnmarshalString(resultText(t, res), &steps))
	require.Len(t, steps, 4)
	assert.Equal(t, "contractor_registration", steps[0].ID)
	assert.Equal(t, "building_permit", steps[3].ID)

	res, err = s.serviceChain(ctx, request(map[string]any{"service_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRelatedServicesTool(t *testing.T) {
	s := newTestTools(t)

	res, err := s.relatedServices(context.Background(), request(map[string]any{"service_id": "building_permit"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, `"id":"plan_review"`)
	assert.Contains(t, text, `"id":"business_license"`)
}

func TestSessionSummaryUnknown(t *testing.T) {
	s := newTestTools(t)

	res, err := s.sessionSummary(context.Background(), request(map[string]any{"session_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
