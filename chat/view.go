// chat/view.go
package chat

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/listenroom/models"
)

var ErrNotConnected = errors.New("not connected")

// SendFunc 把消息发往服务器
type SendFunc func(content, clientKey string) error

// View 客户端的房间聊天视图。发送走乐观回显，服务端确认的消息按
// clientKey 与回显合并；历史在进房时拉取一次，比历史先到的实时
// 消息被缓存并在历史解析后合并。排序按序号升序，同号按时间戳。
type View struct {
	mu        sync.Mutex
	send      SendFunc
	connected func() bool

	userID   int64
	username string

	messages    []models.ChatMessage
	pending     map[string]models.ChatMessage
	early       []models.ChatMessage
	historyDone bool
}

func NewView(userID int64, username string, send SendFunc, connected func() bool) *View {
	return &View{
		send:      send,
		connected: connected,
		userID:    userID,
		username:  username,
		pending:   make(map[string]models.ChatMessage),
	}
}

// Send 发送消息。传输断开时拒绝为 ErrNotConnected，不产生回显。
// 成功时先挂乐观回显再发出，clientKey 是回显与服务端确认的对账键。
func (v *View) Send(content string) (models.ChatMessage, error) {
	if v.connected != nil && !v.connected() {
		return models.ChatMessage{}, ErrNotConnected
	}

	msg := models.ChatMessage{
		UserID:    v.userID,
		Username:  v.username,
		Content:   content,
		Timestamp: time.Now(),
		Type:      models.MessageTypeChat,
		ClientKey: uuid.New().String(),
	}

	v.mu.Lock()
	v.pending[msg.ClientKey] = msg
	v.mu.Unlock()

	if err := v.send(content, msg.ClientKey); err != nil {
		v.mu.Lock()
		delete(v.pending, msg.ClientKey)
		v.mu.Unlock()
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// OnLive 消费实时推送的消息
func (v *View) OnLive(msg models.ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// 服务端确认替换乐观回显
	if msg.ClientKey != "" {
		delete(v.pending, msg.ClientKey)
	}

	if !v.historyDone {
		v.early = append(v.early, msg)
		return
	}
	v.insert(msg)
}

// LoadHistory 历史解析完成；历史排在之前到达的实时消息前面
func (v *View) LoadHistory(history []models.ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.messages = v.messages[:0]
	for _, msg := range history {
		v.insert(msg)
	}
	for _, msg := range v.early {
		v.insert(msg)
	}
	v.early = nil
	v.historyDone = true
}

// Messages 当前应当渲染的消息：已确认的按序，未确认的回显附在末尾
func (v *View) Messages() []models.ChatMessage {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]models.ChatMessage, len(v.messages), len(v.messages)+len(v.pending))
	copy(out, v.messages)

	optimistic := make([]models.ChatMessage, 0, len(v.pending))
	for _, msg := range v.pending {
		optimistic = append(optimistic, msg)
	}
	sort.Slice(optimistic, func(i, j int) bool {
		return optimistic[i].Timestamp.Before(optimistic[j].Timestamp)
	})
	return append(out, optimistic...)
}

// insert 去重（按序号）后插入并保持排序，调用方持锁
func (v *View) insert(msg models.ChatMessage) {
	for _, m := range v.messages {
		if m.Seq == msg.Seq {
			return
		}
	}
	v.messages = append(v.messages, msg)
	sort.Slice(v.messages, func(i, j int) bool {
		if v.messages[i].Seq != v.messages[j].Seq {
			return v.messages[i].Seq < v.messages[j].Seq
		}
		return v.messages[i].Timestamp.Before(v.messages[j].Timestamp)
	})
}
