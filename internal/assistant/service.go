package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"assetledger/internal/core"
	"assetledger/pkg/domain"
)

// contextWindow is how many recent messages are replayed to the model.
const contextWindow = 10

// Completer produces an answer for a prepared conversation.
type Completer interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

// Reply is the outcome of one exchange.
type Reply struct {
	Answer  string `json:"answer,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var ErrEmptyMessage = errors.New("message cannot be blank")

// Service stores both sides of an exchange as chat messages.
type Service struct {
	core      *core.Service
	completer Completer
	log       core.Logger
}

func NewService(svc *core.Service, completer Completer, log core.Logger) *Service {
	if log == nil {
		log = nopLogger{}
	}
	return &Service{core: svc, completer: completer, log: log}
}

// Chat records the question, asks the model with the user's recent
// conversation as context and records the answer. An unknown user is
// returned as a NotFoundError; any other failure yields an unsuccessful
// Reply alongside the error.
func (s *Service) Chat(ctx context.Context, userID int64, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{Message: ErrEmptyMessage.Error()}, ErrEmptyMessage
	}
	user, err := s.core.GetUser(ctx, userID)
	if err != nil {
		return Reply{Message: err.Error()}, err
	}
	if _, err := s.core.AppendChatMessage(ctx, core.ChatMessage{UserID: userID, Content: message, Direction: domain.DirectionQuestion}); err != nil {
		return s.fail(userID, fmt.Errorf("store question: %w", err))
	}
	history, err := s.core.ListChatMessages(ctx, userID)
	if err != nil {
		return s.fail(userID, fmt.Errorf("load conversation: %w", err))
	}
	if len(history) > contextWindow {
		history = history[len(history)-contextWindow:]
	}
	answer, err := s.completer.Complete(ctx, []Turn{
		{Role: "system", Content: systemPrompt(user.Role)},
		{Role: "system", Content: contextPrompt(history)},
		{Role: "user", Content: message},
	})
	if err != nil {
		return s.fail(userID, err)
	}
	if _, err := s.core.AppendChatMessage(ctx, core.ChatMessage{UserID: userID, Content: answer, Direction: domain.DirectionAnswer}); err != nil {
		return s.fail(userID, fmt.Errorf("store answer: %w", err))
	}
	return Reply{Answer: answer, Success: true, Message: "Chat response generated successfully"}, nil
}

// History returns the user's conversation oldest first.
func (s *Service) History(ctx context.Context, userID int64) ([]core.ChatMessage, error) {
	return s.core.ListChatMessages(ctx, userID)
}

func (s *Service) fail(userID int64, err error) (Reply, error) {
	s.log.Error("assistant exchange failed", "user_id", userID, "error", err)
	return Reply{Message: "An error occurred: " + err.Error()}, err
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
