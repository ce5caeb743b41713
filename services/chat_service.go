// services/chat_service.go
package services

import (
	"fmt"

	"github.com/wfunc/listenroom/models"
	"github.com/wfunc/listenroom/persistence"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// ChatService 聊天历史查询
type ChatService struct {
	db persistence.Database
}

func NewChatService(db persistence.Database) *ChatService {
	return &ChatService{db: db}
}

// History 返回房间最近的 limit 条消息，序号升序。
// limit 超界时收敛到 [1, MaxHistoryLimit]。
func (s *ChatService) History(roomCode string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	messages, err := s.db.ChatHistory(roomCode, limit)
	if err != nil {
		return nil, fmt.Errorf("chat history for room %s: %w", roomCode, err)
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}
