// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormRoom 房间模型
type GormRoom struct {
	gorm.Model
	Code      string `gorm:"uniqueIndex;not null;size:6"`
	Name      string `gorm:"not null"`
	OwnerID   int64  `gorm:"index;not null"`
	OwnerName string `gorm:"not null"`
	Status    string `gorm:"not null;default:active"`
}

// GormRoomMember 房间成员关系。LeftAt 为空表示当前仍在房间。
type GormRoomMember struct {
	gorm.Model
	RoomCode string `gorm:"index:idx_room_member,unique;not null;size:6"`
	UserID   int64  `gorm:"index:idx_room_member,unique;not null"`
	Username string `gorm:"not null"`
	Role     string `gorm:"not null;default:member"`
	JoinedAt time.Time
	LeftAt   *time.Time
}

// GormChatMessage 聊天记录。(room_code, seq) 唯一，seq 为房间内单调序号。
type GormChatMessage struct {
	ID          uint   `gorm:"primaryKey"`
	RoomCode    string `gorm:"index:idx_room_seq,unique;not null;size:6"`
	Seq         int64  `gorm:"index:idx_room_seq,unique;not null"`
	UserID      int64  `gorm:"index"`
	Username    string
	Content     string `gorm:"not null"`
	MessageType string `gorm:"not null;default:chat"`
	ClientKey   string `gorm:"size:64"`
	CreatedAt   time.Time
}
