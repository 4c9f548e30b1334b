// Package agent runs a function-calling chat model against a tool registry
// until the model produces a final answer.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	go_openai "github.com/sashabaranov/go-openai"

	"agentchat/internal/domain"
	"agentchat/internal/llm"
	"agentchat/internal/tools"
)

const (
	DefaultMaxIterations = 15
	// StoppedMessage is returned as the answer when the model keeps calling
	// tools past the iteration limit.
	StoppedMessage = "Agent stopped due to max iterations."
)

type Config struct {
	Model         string
	SystemPrompt  string
	Temperature   float32
	MaxIterations int
}

// Executor binds a chat model, a tool registry and a prompt. It holds no
// per-conversation state; history is passed on every call.
type Executor struct {
	client        llm.ChatCompleter
	registry      *tools.Registry
	prompt        *Prompt
	model         string
	temperature   float32
	maxIterations int
	toolDefs      []go_openai.Tool
	toolInfo      []ToolInfo
}

func New(client llm.ChatCompleter, registry *tools.Registry, cfg Config) (*Executor, error) {
	if client == nil {
		return nil, errors.New("agent needs a chat client")
	}
	if registry == nil {
		return nil, errors.New("agent needs a tool registry")
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultChatModel
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	prompt, err := ParsePrompt(cfg.SystemPrompt)
	if err != nil {
		return nil, err
	}

	e := &Executor{
		client:        client,
		registry:      registry,
		prompt:        prompt,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxIterations: cfg.MaxIterations,
	}
	for _, t := range registry.List() {
		e.toolDefs = append(e.toolDefs, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.ParametersJSON(),
			},
		})
		e.toolInfo = append(e.toolInfo, ToolInfo{Name: t.Name(), Description: t.Description()})
	}
	return e, nil
}

// Invoke answers question given the prior conversation. The model may call
// tools any number of times up to the iteration limit.
func (e *Executor) Invoke(ctx context.Context, question string, history []domain.Turn) (string, error) {
	logger := zerolog.Ctx(ctx)

	system, err := e.prompt.Render(PromptData{Tools: e.toolInfo})
	if err != nil {
		return "", err
	}
	messages := make([]go_openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleSystem, Content: system})
	for _, turn := range history {
		messages = append(messages, toMessage(turn))
	}
	messages = append(messages, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleUser, Content: question})

	for iteration := 1; iteration <= e.maxIterations; iteration++ {
		req := go_openai.ChatCompletionRequest{
			Model:       e.model,
			Messages:    messages,
			Temperature: e.temperature,
		}
		if len(e.toolDefs) > 0 {
			req.Tools = e.toolDefs
		}
		resp, err := e.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", errors.Wrap(err, "chat completion failed")
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("chat completion returned no choices")
		}
		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			logger.Debug().Int("iteration", iteration).Msg("agent finished")
			return msg.Content, nil
		}

		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:      go_openai.ChatMessageRoleAssistant,
			Content:   msg.Content,
			ToolCalls: withIDs(msg.ToolCalls),
		})
		for _, call := range messages[len(messages)-1].ToolCalls {
			observation, err := e.runTool(ctx, call)
			if err != nil {
				return "", err
			}
			logger.Debug().
				Int("iteration", iteration).
				Str("tool", call.Function.Name).
				Int("observation_len", len(observation)).
				Msg("tool call")
			messages = append(messages, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				Content:    observation,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}

	logger.Warn().Int("max_iterations", e.maxIterations).Msg("agent hit iteration limit")
	return StoppedMessage, nil
}

// runTool returns the observation for a call. Unknown tools and invalid
// arguments become observations the model can react to.
func (e *Executor) runTool(ctx context.Context, call go_openai.ToolCall) (string, error) {
	tool, ok := e.registry.Get(call.Function.Name)
	if !ok {
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].",
			call.Function.Name, strings.Join(e.registry.Names(), ", ")), nil
	}
	out, err := tool.Invoke(ctx, json.RawMessage(call.Function.Arguments))
	if err != nil {
		var argErr *tools.ArgumentError
		if errors.As(err, &argErr) {
			return argErr.Error(), nil
		}
		return "", errors.Wrapf(err, "tool %s failed", call.Function.Name)
	}
	return out, nil
}

func toMessage(turn domain.Turn) go_openai.ChatCompletionMessage {
	role := go_openai.ChatMessageRoleUser
	if turn.Role == domain.RoleAssistant {
		role = go_openai.ChatMessageRoleAssistant
	}
	return go_openai.ChatCompletionMessage{Role: role, Content: turn.Content}
}

// withIDs fills in call IDs some compatible providers omit, so tool results
// can still be matched to their calls.
func withIDs(calls []go_openai.ToolCall) []go_openai.ToolCall {
	out := make([]go_openai.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		if c.Type == "" {
			c.Type = go_openai.ToolTypeFunction
		}
		out[i] = c
	}
	return out
}
