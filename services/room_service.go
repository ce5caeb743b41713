// services/room_service.go
package services

import (
	"fmt"

	"github.com/wfunc/listenroom/models"
	"github.com/wfunc/listenroom/persistence"
)

// RoomService 房间生命周期相关的持久化查询
type RoomService struct {
	db persistence.Database
}

func NewRoomService(db persistence.Database) *RoomService {
	return &RoomService{db: db}
}

// LookupRoom 按房间码查历史记录（活跃房间直接走内存 Manager）
func (s *RoomService) LookupRoom(code string) (*models.Room, error) {
	room, err := s.db.LoadRoom(code)
	if err != nil {
		if err == persistence.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	return room, nil
}

// MyRooms 用户当前所在的房间列表
func (s *RoomService) MyRooms(userID int64) ([]models.RoomSummary, error) {
	summaries, err := s.db.RoomsForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("rooms for user %d: %w", userID, err)
	}
	if summaries == nil {
		summaries = []models.RoomSummary{}
	}
	return summaries, nil
}
