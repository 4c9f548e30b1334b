package agent

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentchat/internal/domain"
	"agentchat/internal/tools"
)

// scriptedModel replays canned responses and records every request.
type scriptedModel struct {
	responses []go_openai.ChatCompletionMessage
	err       error
	requests  []go_openai.ChatCompletionRequest
}

func (m *scriptedModel) CreateChatCompletion(_ context.Context, req go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return go_openai.ChatCompletionResponse{}, m.err
	}
	i := len(m.requests) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return go_openai.ChatCompletionResponse{
		Choices: []go_openai.ChatCompletionChoice{{Message: m.responses[i]}},
	}, nil
}

func toolCall(id, name, args string) go_openai.ChatCompletionMessage {
	return go_openai.ChatCompletionMessage{
		Role: go_openai.ChatMessageRoleAssistant,
		ToolCalls: []go_openai.ToolCall{{
			ID:       id,
			Type:     go_openai.ToolTypeFunction,
			Function: go_openai.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func answer(text string) go_openai.ChatCompletionMessage {
	return go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleAssistant, Content: text}
}

func newRegistry(t *testing.T, fn func(context.Context, tools.QueryInput) (string, error)) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	lookup, err := tools.New("paper_review", "search the paper", fn)
	require.NoError(t, err)
	require.NoError(t, reg.Register(lookup))
	return reg
}

func TestInvokeWithoutTools(t *testing.T) {
	model := &scriptedModel{responses: []go_openai.ChatCompletionMessage{answer("Hello!")}}
	e, err := New(model, newRegistry(t, noopLookup), Config{})
	require.NoError(t, err)

	history := []domain.Turn{domain.UserTurn("hi"), domain.AssistantTurn("hello")}
	out, err := e.Invoke(context.Background(), "how are you?", history)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", out)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	assert.Equal(t, "solar-1-mini-chat", req.Model)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, go_openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, req.Messages[0].Content)
	assert.Equal(t, go_openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, go_openai.ChatMessageRoleAssistant, req.Messages[2].Role)
	assert.Equal(t, "how are you?", req.Messages[3].Content)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "paper_review", req.Tools[0].Function.Name)
}

func noopLookup(context.Context, tools.QueryInput) (string, error) { return "", nil }

func TestInvokeRunsToolsAndFeedsResults(t *testing.T) {
	var queries []string
	reg := newRegistry(t, func(_ context.Context, in tools.QueryInput) (string, error) {
		queries = append(queries, in.Query)
		return "depth up-scaling", nil
	})
	model := &scriptedModel{responses: []go_openai.ChatCompletionMessage{
		toolCall("call_1", "paper_review", `{"query":"main contribution"}`),
		answer("The paper introduces depth up-scaling."),
	}}
	e, err := New(model, reg, Config{})
	require.NoError(t, err)

	out, err := e.Invoke(context.Background(), "What is the main contribution of the paper?", nil)
	require.NoError(t, err)
	assert.Equal(t, "The paper introduces depth up-scaling.", out)
	assert.Equal(t, []string{"main contribution"}, queries)

	require.Len(t, model.requests, 2)
	msgs := model.requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, go_openai.ChatMessageRoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, "depth up-scaling", last.Content)
	assert.Len(t, msgs[len(msgs)-2].ToolCalls, 1)
}

func TestInvokeUnknownToolBecomesObservation(t *testing.T) {
	model := &scriptedModel{responses: []go_openai.ChatCompletionMessage{
		toolCall("c", "web_browse", `{}`),
		answer("done"),
	}}
	e, err := New(model, newRegistry(t, noopLookup), Config{})
	require.NoError(t, err)

	out, err := e.Invoke(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	msgs := model.requests[1].Messages
	assert.Equal(t, "web_browse is not a valid tool, try one of [paper_review].", msgs[len(msgs)-1].Content)
}

func TestInvokeInvalidArgumentsBecomeObservation(t *testing.T) {
	model := &scriptedModel{responses: []go_openai.ChatCompletionMessage{
		toolCall("c", "paper_review", `{"query":7}`),
		answer("retried"),
	}}
	e, err := New(model, newRegistry(t, noopLookup), Config{})
	require.NoError(t, err)

	out, err := e.Invoke(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "retried", out)
	msgs := model.requests[1].Messages
	assert.Contains(t, msgs[len(msgs)-1].Content, "invalid arguments for tool paper_review")
}

func TestInvokeToolErrorAbortsTurn(t *testing.T) {
	boom := errors.New("search backend down")
	reg := newRegistry(t, func(context.Context, tools.QueryInput) (string, error) { return "", boom })
	model := &scriptedModel{responses: []go_openai.ChatCompletionMessage{
		toolCall("c", "paper_review", `{"query":"x"}`),
	}}
	e, err := New(model, reg, Config{})
	require.NoError(t, err)

	_, err = e.Invoke(context.Background(), "q", nil)
	require.Error(t, err)
	assert.Equal(t, boom, errors.Cause(err))
	assert.Len(t, model.requests, 1)
}

func TestInvokeStopsAtMaxIterations(t *testing.T) {
	model := &scriptedModel{responses: []go_openai.ChatCompletionMessage{
		toolCall("c", "paper_review", `{"query":"again"}`),
	}}
	e, err := New(model, newRegistry(t, noopLookup), Config{MaxIterations: 3})
	require.NoError(t, err)

	out, err := e.Invoke(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, StoppedMessage, out)
	assert.Len(t, model.requests, 3)
}

func TestInvokeModelError(t *testing.T) {
	model := &scriptedModel{err: errors.New("401 unauthorized")}
	e, err := New(model, newRegistry(t, noopLookup), Config{})
	require.NoError(t, err)

	_, err = e.Invoke(context.Background(), "q", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401 unauthorized")
}

func TestInvokeFillsMissingCallIDs(t *testing.T) {
	model := &scriptedModel{responses: []go_openai.ChatCompletionMessage{
		toolCall("", "paper_review", `{"query":"x"}`),
		answer("ok"),
	}}
	e, err := New(model, newRegistry(t, noopLookup), Config{})
	require.NoError(t, err)

	_, err = e.Invoke(context.Background(), "q", nil)
	require.NoError(t, err)
	msgs := model.requests[1].Messages
	id := msgs[len(msgs)-2].ToolCalls[0].ID
	assert.NotEmpty(t, id)
	assert.Equal(t, id, msgs[len(msgs)-1].ToolCallID)
}

func TestSystemPromptTemplate(t *testing.T) {
	p, err := ParsePrompt(`You can use {{ .Tools | len }} tools: {{ range $i, $t := .Tools }}{{ if $i }}, {{ end }}{{ $t.Name | upper }}{{ end }}`)
	require.NoError(t, err)
	out, err := p.Render(PromptData{Tools: []ToolInfo{{Name: "a"}, {Name: "b"}}})
	require.NoError(t, err)
	assert.Equal(t, "You can use 2 tools: A, B", out)

	_, err = ParsePrompt("{{ .Broken ")
	assert.Error(t, err)
}
