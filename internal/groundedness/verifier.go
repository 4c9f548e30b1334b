// Package groundedness asks a verification model whether an answer is
// supported by its context.
package groundedness

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	go_openai "github.com/sashabaranov/go-openai"

	"agentchat/internal/domain"
	"agentchat/internal/llm"
)

const DefaultModel = "groundedness-check"

// PairMode selects which two log entries are checked.
type PairMode string

const (
	// PairLatest checks the two most recently appended entries, i.e. the
	// question and answer of the turn that just completed.
	PairLatest PairMode = "latest"
	// PairHead checks the first two entries of the trimmed log. Once the log
	// is full these belong to an older exchange.
	PairHead PairMode = "head"
)

func ParsePairMode(s string) (PairMode, error) {
	switch PairMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PairLatest:
		return PairLatest, nil
	case PairHead:
		return PairHead, nil
	}
	return "", errors.Errorf("unknown groundedness pair mode %q (want latest or head)", s)
}

// Status is the outcome class of a check.
type Status int

const (
	Grounded Status = iota
	NotGrounded
	Unavailable
)

func (s Status) String() string {
	switch s {
	case Grounded:
		return "grounded"
	case NotGrounded:
		return "notGrounded"
	case Unavailable:
		return "unavailable"
	}
	return "unknown"
}

// Verdict is the result of a check. Raw holds the service's label for
// Grounded and NotGrounded, Reason the failure for Unavailable.
type Verdict struct {
	Status Status
	Raw    string
	Reason string
}

func (v Verdict) Caption() string {
	switch v.Status {
	case Grounded:
		return "The answer generated by the LLM passed the groundedness check."
	case NotGrounded:
		return "The answer generated by the LLM did not pass the groundedness check."
	default:
		return "Groundedness check unavailable: " + v.Reason
	}
}

// SelectPair picks the (context, answer) strings to check. Missing entries
// are empty strings.
func SelectPair(turns []domain.Turn, mode PairMode) (string, string) {
	at := func(i int) string {
		if i < 0 || i >= len(turns) {
			return ""
		}
		return turns[i].Content
	}
	switch {
	case len(turns) == 0:
		return "", ""
	case len(turns) == 1:
		return at(0), ""
	case mode == PairHead:
		return at(0), at(1)
	default:
		return at(len(turns) - 2), at(len(turns) - 1)
	}
}

type Config struct {
	Model string
	Pair  PairMode
}

type Verifier struct {
	client llm.ChatCompleter
	model  string
	pair   PairMode
}

func New(client llm.ChatCompleter, cfg Config) (*Verifier, error) {
	if client == nil {
		return nil, errors.New("groundedness verifier needs a chat client")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Pair == "" {
		cfg.Pair = PairLatest
	}
	return &Verifier{client: client, model: cfg.Model, pair: cfg.Pair}, nil
}

// Check verifies the pair selected from turns.
func (v *Verifier) Check(ctx context.Context, turns []domain.Turn) Verdict {
	c, a := SelectPair(turns, v.pair)
	return v.CheckPair(ctx, c, a)
}

// CheckPair sends context and answer to the verification model. Service
// failures yield an Unavailable verdict, never an error.
func (v *Verifier) CheckPair(ctx context.Context, contextText, answer string) Verdict {
	logger := zerolog.Ctx(ctx)
	resp, err := v.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []go_openai.ChatCompletionMessage{
			{Role: go_openai.ChatMessageRoleUser, Content: contextText},
			{Role: go_openai.ChatMessageRoleAssistant, Content: answer},
		},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("groundedness check failed")
		return Verdict{Status: Unavailable, Reason: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return Verdict{Status: Unavailable, Reason: "empty response from verification service"}
	}
	// anything but the exact label, padded variants included, is not grounded
	raw := resp.Choices[0].Message.Content
	verdict := Verdict{Status: NotGrounded, Raw: raw}
	if raw == "grounded" {
		verdict.Status = Grounded
	}
	logger.Debug().Str("verdict", raw).Msg("groundedness check")
	return verdict
}
