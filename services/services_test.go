package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/listenroom/models"
	"github.com/wfunc/listenroom/persistence"
)

// fakeDatabase implements persistence.Database in memory for service tests.
type fakeDatabase struct {
	rooms    map[string]*models.Room
	messages map[string][]models.ChatMessage
	summaries map[int64][]models.RoomSummary

	historyLimit int
	err          error
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{
		rooms:     make(map[string]*models.Room),
		messages:  make(map[string][]models.ChatMessage),
		summaries: make(map[int64][]models.RoomSummary),
	}
}

func (d *fakeDatabase) CreateRoom(code, name string, ownerID int64, ownerName string) error {
	d.rooms[code] = &models.Room{Code: code, Name: name, OwnerID: ownerID, Status: models.RoomStatusActive}
	return nil
}

func (d *fakeDatabase) SetRoomStatus(code string, status models.RoomStatus) error {
	if r, ok := d.rooms[code]; ok {
		r.Status = status
	}
	return nil
}

func (d *fakeDatabase) RoomCodeExists(code string) (bool, error) {
	_, ok := d.rooms[code]
	return ok, nil
}

func (d *fakeDatabase) LoadRoom(code string) (*models.Room, error) {
	if d.err != nil {
		return nil, d.err
	}
	r, ok := d.rooms[code]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	return r, nil
}

func (d *fakeDatabase) UpsertMember(code string, userID int64, username string, role models.Role, joinedAt time.Time) error {
	return nil
}
func (d *fakeDatabase) MarkMemberLeft(code string, userID int64) error { return nil }
func (d *fakeDatabase) MarkAllMembersLeft(code string) error           { return nil }

func (d *fakeDatabase) RoomsForUser(userID int64) ([]models.RoomSummary, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.summaries[userID], nil
}

func (d *fakeDatabase) AppendChatMessage(code string, msg *models.ChatMessage) error {
	d.messages[code] = append(d.messages[code], *msg)
	return nil
}

func (d *fakeDatabase) ChatHistory(code string, limit int) ([]models.ChatMessage, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.historyLimit = limit
	msgs := d.messages[code]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (d *fakeDatabase) MaxChatSeq(code string) (int64, error) { return 0, nil }
func (d *fakeDatabase) Close() error                          { return nil }

func TestRoomService_LookupRoom(t *testing.T) {
	db := newFakeDatabase()
	db.CreateRoom("123456", "Test Room", 1, "alice")
	svc := NewRoomService(db)

	room, err := svc.LookupRoom("123456")
	require.NoError(t, err)
	assert.Equal(t, "Test Room", room.Name)
	assert.Equal(t, int64(1), room.OwnerID)

	_, err = svc.LookupRoom("999999")
	assert.ErrorIs(t, err, persistence.ErrRecordNotFound)
}

func TestRoomService_LookupRoomWrapsErrors(t *testing.T) {
	db := newFakeDatabase()
	db.err = errors.New("connection refused")
	svc := NewRoomService(db)

	_, err := svc.LookupRoom("123456")
	require.Error(t, err)
	assert.NotErrorIs(t, err, persistence.ErrRecordNotFound)
	assert.Contains(t, err.Error(), "123456")
}

func TestRoomService_MyRooms(t *testing.T) {
	db := newFakeDatabase()
	db.summaries[7] = []models.RoomSummary{
		{ID: "111111", Name: "a", MemberCount: 3},
		{ID: "222222", Name: "b", MemberCount: 1},
	}
	svc := NewRoomService(db)

	rooms, err := svc.MyRooms(7)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	// No rows must come back as an empty slice, not nil.
	rooms, err = svc.MyRooms(8)
	require.NoError(t, err)
	assert.NotNil(t, rooms)
	assert.Empty(t, rooms)
}

func TestChatService_HistoryLimitClamp(t *testing.T) {
	db := newFakeDatabase()
	svc := NewChatService(db)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero uses default", 0, DefaultHistoryLimit},
		{"negative uses default", -5, DefaultHistoryLimit},
		{"in range passes through", 20, 20},
		{"over max clamps", 10000, MaxHistoryLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.History("123456", tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, db.historyLimit)
		})
	}
}

func TestChatService_History(t *testing.T) {
	db := newFakeDatabase()
	for i := 1; i <= 3; i++ {
		db.AppendChatMessage("123456", &models.ChatMessage{Seq: int64(i), Content: "msg"})
	}
	svc := NewChatService(db)

	msgs, err := svc.History("123456", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, int64(1), msgs[0].Seq)

	// Empty room yields an empty slice.
	msgs, err = svc.History("654321", 10)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}
