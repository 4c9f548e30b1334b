// Package chat sequences one conversational turn: agent, log, verification.
package chat

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"agentchat/internal/domain"
	"agentchat/internal/groundedness"
	"agentchat/internal/session"
)

var ErrEmptyInput = errors.New("empty input")

// Agent answers a question given prior turns.
type Agent interface {
	Invoke(ctx context.Context, question string, history []domain.Turn) (string, error)
}

// Verifier checks the latest exchange of a log.
type Verifier interface {
	Check(ctx context.Context, turns []domain.Turn) groundedness.Verdict
}

type Result struct {
	Answer  string
	Verdict groundedness.Verdict
	// Turns is the log after the exchange was recorded and trimmed.
	Turns []domain.Turn
}

type Pipeline struct {
	agent    Agent
	verifier Verifier
}

func NewPipeline(agent Agent, verifier Verifier) *Pipeline {
	return &Pipeline{agent: agent, verifier: verifier}
}

// Submit runs one turn against l. If the agent fails, l is left untouched
// and the error is returned.
func (p *Pipeline) Submit(ctx context.Context, l *session.Log, input string) (Result, error) {
	if strings.TrimSpace(input) == "" {
		return Result{}, ErrEmptyInput
	}
	logger := log.With().Str("session", l.ID()).Logger()
	ctx = logger.WithContext(ctx)

	answer, err := p.agent.Invoke(ctx, input, l.Turns())
	if err != nil {
		logger.Error().Err(err).Msg("agent turn failed")
		return Result{}, errors.Wrap(err, "agent failed")
	}
	l.Exchange(input, answer)

	turns := l.Turns()
	verdict := p.verifier.Check(ctx, turns)
	logger.Info().
		Int("turns", len(turns)).
		Str("verdict", verdict.Status.String()).
		Msg("turn completed")

	return Result{Answer: answer, Verdict: verdict, Turns: turns}, nil
}
