// persistence/interface.go
package persistence

import (
	"fmt"
	"time"

	"github.com/wfunc/listenroom/models"
)

// Database 数据库接口。room.Store 是它的子集。
type Database interface {
	CreateRoom(code, name string, ownerID int64, ownerName string) error
	SetRoomStatus(code string, status models.RoomStatus) error
	RoomCodeExists(code string) (bool, error)
	LoadRoom(code string) (*models.Room, error)

	UpsertMember(code string, userID int64, username string, role models.Role, joinedAt time.Time) error
	MarkMemberLeft(code string, userID int64) error
	MarkAllMembersLeft(code string) error
	RoomsForUser(userID int64) ([]models.RoomSummary, error)

	AppendChatMessage(code string, msg *models.ChatMessage) error
	ChatHistory(code string, limit int) ([]models.ChatMessage, error)
	MaxChatSeq(code string) (int64, error)

	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
