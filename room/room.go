// room/room.go
package room

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/listenroom/logger"
	"github.com/wfunc/listenroom/models"
	"github.com/wfunc/listenroom/network"
)

// Room 是一个听歌房的权威状态：成员、播放列表、最近一次播放快照。
// 所有变更都经由 ops 队列在单个协程里串行执行，保证同一房间的
// 读-改-写不会交错，广播顺序即全序。
type Room struct {
	Code      string
	Name      string
	CreatedAt time.Time

	ownerID  int64
	members  map[int64]*models.Member
	playlist *Playlist
	snapshot *models.PlaybackSnapshot
	chatSeq  int64

	status        models.RoomStatus
	masterHandoff bool

	broadcaster Broadcaster
	store       Store

	ops       chan func()
	closeChan chan struct{}
	closeOnce sync.Once
}

const opQueueSize = 128

// NewRoom 创建房间并启动其操作协程。chatSeq 从持久化的最大序号续接。
func NewRoom(code, name string, ownerID int64, masterHandoff bool, broadcaster Broadcaster, store Store) *Room {
	r := &Room{
		Code:          code,
		Name:          name,
		CreatedAt:     time.Now(),
		ownerID:       ownerID,
		members:       make(map[int64]*models.Member),
		playlist:      NewPlaylist(),
		status:        models.RoomStatusActive,
		masterHandoff: masterHandoff,
		broadcaster:   broadcaster,
		store:         store,
		ops:           make(chan func(), opQueueSize),
		closeChan:     make(chan struct{}),
	}

	if seq, err := store.MaxChatSeq(code); err == nil {
		r.chatSeq = seq
	}

	go r.loop()
	return r
}

func (r *Room) loop() {
	for {
		select {
		case op := <-r.ops:
			op()
		case <-r.closeChan:
			return
		}
	}
}

// exec 将操作排入房间队列并等待执行完成。
// 房间已解散时返回 ErrRoomNotFound。
func (r *Room) exec(fn func()) error {
	done := make(chan struct{})
	select {
	case r.ops <- func() {
		fn()
		close(done)
	}:
	case <-r.closeChan:
		return ErrRoomNotFound
	}

	select {
	case <-done:
		return nil
	case <-r.closeChan:
		return ErrRoomNotFound
	}
}

// Close 停止操作协程。重复调用无害。
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})
}

// --- 读取 ---

// State 返回房间完整状态的副本
func (r *Room) State() (*models.RoomState, error) {
	var state *models.RoomState
	err := r.exec(func() {
		state = &models.RoomState{
			Room: models.Room{
				Code:      r.Code,
				Name:      r.Name,
				OwnerID:   r.ownerID,
				Status:    r.status,
				CreatedAt: r.CreatedAt,
			},
			Members:  r.memberList(),
			Playlist: r.playlist.Items(),
		}
		if r.snapshot != nil {
			snap := *r.snapshot
			state.Snapshot = &snap
		}
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// MemberCount 当前成员数
func (r *Room) MemberCount() int {
	n := 0
	_ = r.exec(func() { n = len(r.members) })
	return n
}

// OwnerID 当前房主
func (r *Room) OwnerID() int64 {
	var id int64
	_ = r.exec(func() { id = r.ownerID })
	return id
}

// --- 成员与模式 ---

// Join 加入房间。重复加入是幂等的（重连场景），只会刷新连接标记。
// 房主角色只授予记录在案的 ownerID（创建者，或移交后的新房主）。
func (r *Room) Join(userID int64, username, avatar string) (*models.Member, error) {
	var member *models.Member
	var opErr error
	err := r.exec(func() {
		if m, ok := r.members[userID]; ok {
			m.Connected = true
			member = cloneMember(m)
			r.broadcastMembers()
			return
		}

		// 只有记录在案的房主能以房主身份加入；恢复出来的空房间
		// 也一样，先重连的普通成员不能抢占房主。
		role := models.RoleMember
		if userID == r.ownerID || r.ownerID == 0 {
			role = models.RoleOwner
			r.ownerID = userID
		}

		m := &models.Member{
			UserID:     userID,
			Username:   username,
			Role:       role,
			Mode:       models.ModeChat,
			CanControl: false,
			Connected:  true,
			JoinedAt:   time.Now(),
			Avatar:     avatar,
		}
		r.members[userID] = m
		member = cloneMember(m)

		if err := r.store.UpsertMember(r.Code, userID, username, role, m.JoinedAt); err != nil {
			logger.Log.Errorf("room %s: persist member %d: %v", r.Code, userID, err)
		}

		r.systemMessage(fmt.Sprintf("%s 加入了房间", username))
		r.broadcastMembers()
	})
	if err != nil {
		return nil, err
	}
	return member, opErr
}

// Leave 离开房间并移除成员关系
func (r *Room) Leave(userID int64) error {
	var opErr error
	err := r.exec(func() {
		m, ok := r.members[userID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		delete(r.members, userID)
		if err := r.store.MarkMemberLeft(r.Code, userID); err != nil {
			logger.Log.Errorf("room %s: mark member %d left: %v", r.Code, userID, err)
		}

		if userID == r.ownerID {
			r.handleOwnerGone(m)
		}

		r.systemMessage(fmt.Sprintf("%s 离开了房间", m.Username))
		r.broadcastMembers()
	})
	if err != nil {
		return err
	}
	return opErr
}

// HandleDisconnect 连接断开。成员关系保留，等待重连；
// 房主断线时按配置决定是否移交房主。
func (r *Room) HandleDisconnect(userID int64) {
	_ = r.exec(func() {
		m, ok := r.members[userID]
		if !ok {
			return
		}
		m.Connected = false

		if userID == r.ownerID {
			r.handleOwnerGone(m)
		}
		r.broadcastMembers()
	})
}

// handleOwnerGone 房主离开或断线。masterHandoff 关闭时，跟随端保留
// 最后一个快照（冻结态）直到房主回来或自己退出 listen 模式；开启时
// 把房主移交给加入最早的在线成员。
func (r *Room) handleOwnerGone(old *models.Member) {
	if !r.masterHandoff {
		return
	}

	var next *models.Member
	for _, m := range r.members {
		if m.UserID == old.UserID || !m.Connected {
			continue
		}
		if next == nil || m.JoinedAt.Before(next.JoinedAt) {
			next = m
		}
	}
	if next == nil {
		return
	}

	if old.Role == models.RoleOwner {
		old.Role = models.RoleMember
	}
	next.Role = models.RoleOwner
	r.ownerID = next.UserID
	if err := r.store.UpsertMember(r.Code, next.UserID, next.Username, next.Role, next.JoinedAt); err != nil {
		logger.Log.Errorf("room %s: persist new owner %d: %v", r.Code, next.UserID, err)
	}
	r.broadcastJSON(network.MsgTypeRoleChange, map[string]interface{}{
		"ownerId":  next.UserID,
		"username": next.Username,
	})
	logger.Log.Infof("room %s: ownership handed off to %d", r.Code, next.UserID)
}

// SetMode 成员为自己切换 listen/chat 模式。
// 房主从 listen 切回 chat 时，级联把所有 listen 成员切回 chat。
func (r *Room) SetMode(userID int64, mode models.Mode) error {
	if mode != models.ModeListen && mode != models.ModeChat {
		return ErrValidation
	}
	var opErr error
	err := r.exec(func() {
		m, ok := r.members[userID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		wasListen := m.Mode == models.ModeListen
		m.Mode = mode

		if m.Role == models.RoleOwner && wasListen && mode == models.ModeChat {
			for _, other := range r.members {
				if other.UserID != userID && other.Mode == models.ModeListen {
					other.Mode = models.ModeChat
				}
			}
			r.broadcastJSON(network.MsgTypeMasterModeChange, map[string]interface{}{
				"ownerId": userID,
				"mode":    mode,
			})
		}
		r.broadcastMembers()
	})
	if err != nil {
		return err
	}
	return opErr
}

// GrantControl 房主授予/收回普通成员的控制权
func (r *Room) GrantControl(userID, targetID int64, grant bool) error {
	var opErr error
	err := r.exec(func() {
		actor, ok := r.members[userID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		if !CanPerform(actor, OpGrantControl) {
			opErr = ErrPermissionDenied
			return
		}
		target, ok := r.members[targetID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		if target.Role == models.RoleOwner {
			opErr = ErrValidation
			return
		}
		target.CanControl = grant
		r.broadcastMembers()
	})
	if err != nil {
		return err
	}
	return opErr
}

// TransferOwner 房主移交。目标成为唯一房主，原房主降为普通成员。
func (r *Room) TransferOwner(userID, targetID int64) error {
	var opErr error
	err := r.exec(func() {
		actor, ok := r.members[userID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		if !CanPerform(actor, OpTransferOwner) {
			opErr = ErrPermissionDenied
			return
		}
		target, ok := r.members[targetID]
		if !ok || targetID == userID {
			opErr = ErrValidation
			return
		}

		actor.Role = models.RoleMember
		target.Role = models.RoleOwner
		r.ownerID = targetID
		if err := r.store.UpsertMember(r.Code, targetID, target.Username, target.Role, target.JoinedAt); err != nil {
			logger.Log.Errorf("room %s: persist new owner %d: %v", r.Code, targetID, err)
		}
		r.broadcastJSON(network.MsgTypeRoleChange, map[string]interface{}{
			"ownerId":  targetID,
			"username": target.Username,
		})
		r.broadcastMembers()
	})
	if err != nil {
		return err
	}
	return opErr
}

// Disband 房主解散房间。广播解散通知、清空成员并关闭操作队列。
// 返回 true 表示房间已关闭，Manager 应将其移除。
func (r *Room) Disband(userID int64) (bool, error) {
	var opErr error
	disbanded := false
	err := r.exec(func() {
		actor, ok := r.members[userID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		if !CanPerform(actor, OpDisband) {
			opErr = ErrPermissionDenied
			return
		}

		r.status = models.RoomStatusDisbanded
		r.broadcastJSON(network.MsgTypeDisband, map[string]interface{}{
			"roomId": r.Code,
		})
		r.members = make(map[int64]*models.Member)
		if err := r.store.MarkAllMembersLeft(r.Code); err != nil {
			logger.Log.Errorf("room %s: mark all members left: %v", r.Code, err)
		}
		if err := r.store.SetRoomStatus(r.Code, models.RoomStatusDisbanded); err != nil {
			logger.Log.Errorf("room %s: persist disband: %v", r.Code, err)
		}
		disbanded = true
	})
	if err != nil {
		return false, err
	}
	if disbanded {
		r.Close()
	}
	return disbanded, opErr
}

// --- 播放列表 ---

// AddSong 追加歌曲，成功后广播完整播放列表
func (r *Room) AddSong(userID int64, item models.PlaylistItem) error {
	var opErr error
	err := r.exec(func() {
		actor, ok := r.members[userID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		if !CanPerform(actor, OpAddSong) {
			opErr = ErrPermissionDenied
			return
		}
		item.AddedBy = userID
		item.AddedAt = time.Now()
		if opErr = r.playlist.Add(&item); opErr != nil {
			return
		}
		r.broadcastPlaylist()
	})
	if err != nil {
		return err
	}
	return opErr
}

// RemoveSong 删除指定位置的歌曲
func (r *Room) RemoveSong(userID int64, position int) error {
	var opErr error
	err := r.exec(func() {
		actor, ok := r.members[userID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		if !CanPerform(actor, OpRemoveSong) {
			opErr = ErrPermissionDenied
			return
		}
		if _, opErr = r.playlist.Remove(position); opErr != nil {
			return
		}
		r.broadcastPlaylist()
	})
	if err != nil {
		return err
	}
	return opErr
}

// ReorderSong 移动单个条目
func (r *Room) ReorderSong(userID int64, from, to int) error {
	var opErr error
	err := r.exec(func() {
		actor, ok := r.members[userID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		if !CanPerform(actor, OpReorderSong) {
			opErr = ErrPermissionDenied
			return
		}
		if opErr = r.playlist.Reorder(from, to); opErr != nil {
			return
		}
		r.broadcastPlaylist()
	})
	if err != nil {
		return err
	}
	return opErr
}

// --- 播放快照 ---

// ReportPlayback 主端上报播放状态。只接受当前处于 listen 模式的房主，
// 其他任何人上报都拒绝为 ErrNotMaster。接受后打 ReportedAt 时间戳并
// 广播给所有 listen 模式成员。
func (r *Room) ReportPlayback(userID int64, snap models.PlaybackSnapshot) error {
	var opErr error
	err := r.exec(func() {
		actor, ok := r.members[userID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		if !CanPerform(actor, OpReportPlayback) {
			opErr = ErrNotMaster
			return
		}

		snap.ReportedAt = time.Now()
		r.snapshot = &snap

		listeners := make([]int64, 0, len(r.members))
		for _, m := range r.members {
			if m.Mode == models.ModeListen && m.UserID != userID {
				listeners = append(listeners, m.UserID)
			}
		}
		if len(listeners) > 0 {
			data, _ := json.Marshal(snap)
			_ = r.broadcaster.BroadcastToUsers(listeners, network.MsgTypePlaybackSnapshot, data)
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// RequestPlayback 跟随端请求当前播放状态。已有快照立即回给请求者，
// 同时转发同步请求给主端触发一次带外上报，避免等满一个心跳周期。
func (r *Room) RequestPlayback(userID int64) error {
	var opErr error
	err := r.exec(func() {
		if _, ok := r.members[userID]; !ok {
			opErr = ErrNotInRoom
			return
		}

		if r.snapshot != nil {
			data, _ := json.Marshal(*r.snapshot)
			_ = r.broadcaster.BroadcastToUsers([]int64{userID}, network.MsgTypePlaybackSnapshot, data)
		}

		if master := r.currentMaster(); master != nil && master.UserID != userID {
			data, _ := json.Marshal(map[string]interface{}{"userId": userID})
			_ = r.broadcaster.BroadcastToUsers([]int64{master.UserID}, network.MsgTypeSyncRequest, data)
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// --- 聊天 ---

// SendChat 发送聊天消息：分配房间内单调序号、落库、回显 clientKey 广播
func (r *Room) SendChat(userID int64, content, clientKey string) (*models.ChatMessage, error) {
	if content == "" {
		return nil, ErrValidation
	}
	var msg *models.ChatMessage
	var opErr error
	err := r.exec(func() {
		m, ok := r.members[userID]
		if !ok {
			opErr = ErrNotInRoom
			return
		}
		r.chatSeq++
		msg = &models.ChatMessage{
			Seq:       r.chatSeq,
			UserID:    userID,
			Username:  m.Username,
			Content:   content,
			Timestamp: time.Now(),
			Type:      models.MessageTypeChat,
			ClientKey: clientKey,
		}
		if err := r.store.AppendChatMessage(r.Code, msg); err != nil {
			logger.Log.Errorf("room %s: persist chat message: %v", r.Code, err)
		}
		r.broadcastJSON(network.MsgTypeChatMessage, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, opErr
}

// systemMessage 只在操作协程内调用
func (r *Room) systemMessage(content string) {
	r.chatSeq++
	msg := &models.ChatMessage{
		Seq:       r.chatSeq,
		Content:   content,
		Timestamp: time.Now(),
		Type:      models.MessageTypeSystem,
	}
	if err := r.store.AppendChatMessage(r.Code, msg); err != nil {
		logger.Log.Errorf("room %s: persist system message: %v", r.Code, err)
	}
	r.broadcastJSON(network.MsgTypeChatMessage, msg)
}

// --- 内部辅助，全部只在操作协程内调用 ---

// currentMaster 主端是派生状态：房主且处于 listen 模式
func (r *Room) currentMaster() *models.Member {
	owner := r.members[r.ownerID]
	if owner != nil && owner.Role == models.RoleOwner && owner.Mode == models.ModeListen && owner.Connected {
		return owner
	}
	return nil
}

func (r *Room) memberList() []models.Member {
	out := make([]models.Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

func (r *Room) broadcastMembers() {
	r.broadcastJSON(network.MsgTypeMemberList, r.memberList())
}

func (r *Room) broadcastPlaylist() {
	// 全量广播而不是增量，房间播放列表很小，省掉补丁乱序问题
	r.broadcastJSON(network.MsgTypePlaylist, r.playlist.Items())
}

func (r *Room) broadcastJSON(msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("room %s: marshal broadcast %d: %v", r.Code, msgID, err)
		return
	}
	if err := r.broadcaster.BroadcastToRoom(r.Code, msgID, data); err != nil {
		logger.Log.Warnf("room %s: broadcast %d: %v", r.Code, msgID, err)
	}
}

func cloneMember(m *models.Member) *models.Member {
	c := *m
	return &c
}
