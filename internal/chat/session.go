// Package chat drives one AI interview conversation. The transcript is
// append-only; the session closes when the interviewer emits its structured
// result block, and the raw markers never reach the rendered transcript.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/diploy/competency-gateway/internal/mapping"
	"github.com/diploy/competency-gateway/internal/models"
)

// Interviewer is the subset of the SDK the chat session needs.
type Interviewer interface {
	StartInterview(ctx context.Context, token string) (string, error)
	SendInterview(ctx context.Context, token, prompt string) (string, error)
	ChatHistory(ctx context.Context, token string) ([]models.ChatLog, error)
}

// TokenFunc resolves the session's bearer token.
type TokenFunc func(ctx context.Context) (string, error)

// Session is the conversation state for one gateway session.
type Session struct {
	interviewer Interviewer
	token       TokenFunc

	mu       sync.Mutex
	messages []models.ChatMessage
	nextID   int
	closed   bool
	result   *mapping.ChatResult
	busy     bool
}

// NewSession creates an empty conversation.
func NewSession(interviewer Interviewer, token TokenFunc) *Session {
	return &Session{interviewer: interviewer, token: token}
}

// Start opens the interview and records the greeting. Calling Start on a
// conversation that already has messages is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if len(s.messages) > 0 {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	token, err := s.token(ctx)
	if err != nil {
		return err
	}
	greeting, err := s.interviewer.StartInterview(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to start interview: %w", err)
	}

	s.mu.Lock()
	s.appendReplyLocked(greeting)
	s.mu.Unlock()
	return nil
}

// Send appends the user's message to the transcript before the reply
// resolves, so a slow or failed upstream call never loses what the user
// typed. The reply is scanned for the terminal result block; once one is
// seen the conversation closes even when the block itself fails to parse.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrConversationClosed
	}
	if s.busy {
		s.mu.Unlock()
		return ErrReplyPending
	}
	s.busy = true
	s.appendLocked(models.RoleUser, text, false)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	token, err := s.token(ctx)
	if err != nil {
		return err
	}
	reply, err := s.interviewer.SendInterview(ctx, token, text)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	s.mu.Lock()
	s.appendReplyLocked(reply)
	s.mu.Unlock()
	return nil
}

// appendReplyLocked records an AI reply, stripping the control markers and
// closing the conversation when a result block is present.
func (s *Session) appendReplyLocked(reply string) {
	terminal := mapping.HasResultBlock(reply)
	if terminal {
		s.closed = true
		result, err := mapping.ExtractResult(reply)
		if err != nil {
			slog.Warn("interview result block did not parse", "error", err)
		} else {
			s.result = result
		}
	}

	s.appendLocked(models.RoleAI, mapping.StripMarkers(reply), terminal)
}

func (s *Session) appendLocked(role models.ChatRole, text string, terminal bool) {
	s.nextID++
	s.messages = append(s.messages, models.ChatMessage{
		ID:       s.nextID,
		Role:     role,
		Text:     text,
		Terminal: terminal,
	})
}

// Replay rebuilds the transcript from the persisted chat history, in log
// order. It overwrites any local transcript.
func (s *Session) Replay(ctx context.Context) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}
	logs, err := s.interviewer.ChatHistory(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to load chat history: %w", err)
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = s.messages[:0]
	s.nextID = 0
	s.closed = false
	s.result = nil
	for _, entry := range logs {
		if entry.UserPrompt != "" {
			s.appendLocked(models.RoleUser, entry.UserPrompt, false)
		}
		if entry.AIResponse != "" {
			s.appendReplyLocked(entry.AIResponse)
		}
	}
	return nil
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.messages...)
}

// Closed reports whether the interviewer has delivered its result.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Result returns the parsed interview outcome, or nil when the
// conversation is still open or the result block was unreadable.
func (s *Session) Result() *mapping.ChatResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	result := *s.result
	return &result
}
