package room

import (
	"time"

	"github.com/wfunc/listenroom/models"
)

// Broadcaster defines the interface for broadcasting messages to room members.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msgID uint16, data []byte) error
	BroadcastToUsers(userIDs []int64, msgID uint16, data []byte) error
}

// Store is the persistence surface the room store depends on. It is a
// subset of persistence.Database.
type Store interface {
	CreateRoom(code, name string, ownerID int64, ownerName string) error
	SetRoomStatus(code string, status models.RoomStatus) error
	RoomCodeExists(code string) (bool, error)
	UpsertMember(code string, userID int64, username string, role models.Role, joinedAt time.Time) error
	MarkMemberLeft(code string, userID int64) error
	MarkAllMembersLeft(code string) error
	AppendChatMessage(code string, msg *models.ChatMessage) error
	MaxChatSeq(code string) (int64, error)
}
