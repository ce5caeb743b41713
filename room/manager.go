// room/manager.go
package room

import (
	"fmt"
	"math/rand"
	"regexp"
	"sync"

	"github.com/wfunc/listenroom/logger"
	"github.com/wfunc/listenroom/models"
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidateCode 房间码必须是 6 位数字
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return ErrValidation
	}
	return nil
}

// Manager 管理所有活跃房间
type Manager struct {
	rooms         map[string]*Room
	mutex         sync.RWMutex
	masterHandoff bool
	broadcaster   Broadcaster
	store         Store
}

func NewManager(masterHandoff bool, broadcaster Broadcaster, store Store) *Manager {
	return &Manager{
		rooms:         make(map[string]*Room),
		masterHandoff: masterHandoff,
		broadcaster:   broadcaster,
		store:         store,
	}
}

// CreateRoom 生成未占用的 6 位房间码并创建房间
func (m *Manager) CreateRoom(name string, ownerID int64, ownerName string) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	code, err := m.freeCode()
	if err != nil {
		return nil, err
	}

	if err := m.store.CreateRoom(code, name, ownerID, ownerName); err != nil {
		return nil, fmt.Errorf("persist room %s: %w", code, err)
	}

	room := NewRoom(code, name, ownerID, m.masterHandoff, m.broadcaster, m.store)
	m.rooms[code] = room
	logger.Log.Infof("room %s created by %d", code, ownerID)
	return room, nil
}

// freeCode 随机取码，对活跃房间和历史记录都查重
func (m *Manager) freeCode() (string, error) {
	for i := 0; i < 100; i++ {
		code := fmt.Sprintf("%06d", rand.Intn(1000000))
		if _, live := m.rooms[code]; live {
			continue
		}
		exists, err := m.store.RoomCodeExists(code)
		if err != nil {
			return "", fmt.Errorf("check room code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free room code after 100 attempts")
}

// Restore 把持久化记录里仍然 active 的房间重新拉起为活跃房间
// （进程重启后首个访问者触发）。不重复创建持久化记录。
func (m *Manager) Restore(record *models.Room) (*Room, error) {
	if record.Status != models.RoomStatusActive {
		return nil, ErrRoomNotFound
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if room, exists := m.rooms[record.Code]; exists {
		return room, nil
	}

	room := NewRoom(record.Code, record.Name, record.OwnerID, m.masterHandoff, m.broadcaster, m.store)
	m.rooms[record.Code] = room
	logger.Log.Infof("room %s restored", record.Code)
	return room, nil
}

// GetRoom 获取活跃房间
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	room, exists := m.rooms[code]
	return room, exists
}

// RemoveRoom 从管理器移除（房间应已 Close）
func (m *Manager) RemoveRoom(code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.rooms, code)
}

// Count 活跃房间数
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Codes 返回所有活跃房间码
func (m *Manager) Codes() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	codes := make([]string, 0, len(m.rooms))
	for code := range m.rooms {
		codes = append(codes, code)
	}
	return codes
}
