package core

import (
	"context"

	"assetledger/pkg/domain"
)

// AppendChatMessage stores one side of an assistant exchange for an existing
// user.
func (s *Service) AppendChatMessage(ctx context.Context, msg ChatMessage) (ChatMessage, error) {
	var stored ChatMessage
	_, err := s.run(ctx, "append_chat_message", func(tx Transaction) error {
		if _, ok := tx.FindUser(msg.UserID); !ok {
			return domain.NotFoundError{Entity: domain.EntityUser, ID: msg.UserID}
		}
		msg.ID = 0
		msg.CreatedAt = s.clock.Now()
		var err error
		stored, err = tx.AppendChatMessage(msg)
		return err
	})
	return stored, err
}

// ListChatMessages returns a user's conversation oldest first.
func (s *Service) ListChatMessages(ctx context.Context, userID int64) ([]ChatMessage, error) {
	var out []ChatMessage
	err := s.view(ctx, "list_chat_messages", func(v TransactionView) error {
		if _, ok := v.FindUser(userID); !ok {
			return domain.NotFoundError{Entity: domain.EntityUser, ID: userID}
		}
		out = v.ListChatMessages(userID)
		return nil
	})
	return out, err
}
