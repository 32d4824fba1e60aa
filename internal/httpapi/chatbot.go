package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"assetledger/internal/assistant"
	"assetledger/pkg/domain"
)

type chatBody struct {
	UserID  int64  `json:"user_id" binding:"required,gt=0"`
	Message string `json:"message"`
}

type chatMessageView struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	Direction string `json:"direction"`
	CreatedAt string `json:"created_at"`
}

func (h *handler) chat(c *gin.Context) {
	var body chatBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	reply, err := h.assistant.Chat(c.Request.Context(), body.UserID, body.Message)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, reply)
	case errors.Is(err, assistant.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, reply)
	case domain.IsNotFound(err):
		h.fail(c, err)
	default:
		c.JSON(http.StatusBadGateway, reply)
	}
}

func (h *handler) chatHistory(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	msgs, err := h.assistant.History(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]chatMessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatMessageView{
			ID:        m.ID,
			Content:   m.Content,
			Direction: string(m.Direction),
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, out)
}
