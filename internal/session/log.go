// Package session holds the bounded conversation log of one chat session.
package session

import (
	"github.com/google/uuid"

	"agentchat/internal/domain"
)

// DefaultMaxMessages is how many turns survive a trim.
const DefaultMaxMessages = 4

// Log is an ordered, bounded list of turns. Oldest turns are evicted first.
// A Log has a single writer: the chat pipeline that owns it.
type Log struct {
	id          string
	maxMessages int
	turns       []domain.Turn
}

// New returns an empty log that keeps at most maxMessages turns after a trim.
// Non-positive values fall back to DefaultMaxMessages.
func New(maxMessages int) *Log {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Log{id: uuid.NewString(), maxMessages: maxMessages}
}

// ID identifies the session in log output.
func (l *Log) ID() string { return l.id }

func (l *Log) MaxMessages() int { return l.maxMessages }

func (l *Log) Len() int { return len(l.turns) }

// Append adds a turn at the end without trimming.
func (l *Log) Append(t domain.Turn) {
	l.turns = append(l.turns, t)
}

// Trim drops the oldest turns until at most MaxMessages remain.
func (l *Log) Trim() {
	if excess := len(l.turns) - l.maxMessages; excess > 0 {
		kept := make([]domain.Turn, l.maxMessages)
		copy(kept, l.turns[excess:])
		l.turns = kept
	}
}

// Exchange records a completed question/answer pair and trims.
func (l *Log) Exchange(question, answer string) {
	l.Append(domain.UserTurn(question))
	l.Append(domain.AssistantTurn(answer))
	l.Trim()
}

// Turns returns a copy of the log in order.
func (l *Log) Turns() []domain.Turn {
	out := make([]domain.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}
