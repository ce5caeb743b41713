// models/models.go
package models

import (
	"time"
)

// Role 成员角色
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Mode 成员当前意图：listen 跟随主播放，chat 仅聊天
type Mode string

const (
	ModeListen Mode = "listen"
	ModeChat   Mode = "chat"
)

// Source 歌曲来源
type Source string

const (
	SourceNetease Source = "netease"
	SourceLocal   Source = "local"
)

// RoomStatus 房间状态
type RoomStatus string

const (
	RoomStatusActive    RoomStatus = "active"
	RoomStatusDisbanded RoomStatus = "disbanded"
)

// MessageType 聊天消息类型
type MessageType string

const (
	MessageTypeChat   MessageType = "chat"
	MessageTypeSystem MessageType = "system"
)

// Room 房间描述
type Room struct {
	Code      string     `json:"id"` // 6位数字房间码
	Name      string     `json:"name"`
	OwnerID   int64      `json:"ownerId"`
	Status    RoomStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Member 房间成员
type Member struct {
	UserID     int64     `json:"userId"`
	Username   string    `json:"username"`
	Role       Role      `json:"role"`
	Mode       Mode      `json:"mode"`
	CanControl bool      `json:"canControl"` // 仅对 role=member 有意义
	Connected  bool      `json:"connected"`
	JoinedAt   time.Time `json:"joinedAt"`
	Avatar     string    `json:"avatar"`
}

// PlaylistItem 播放列表条目，Position 为 0 起的稠密序号
type PlaylistItem struct {
	SongID          string    `json:"songId"` // 带来源前缀，如 netease_<id>、local_<id>
	Name            string    `json:"name"`
	Artist          string    `json:"artist"`
	Cover           string    `json:"cover"`
	DurationSeconds int       `json:"durationSeconds"`
	Source          Source    `json:"source"`
	Position        int       `json:"position"`
	AddedBy         int64     `json:"addedBy"`
	AddedAt         time.Time `json:"addedAt"`
}

// PlaybackSnapshot 主端播放状态快照。ReportedAt 由服务端在接收时打点，
// 跟随端用它外推播放进度。
type PlaybackSnapshot struct {
	SongID          string    `json:"songId"`
	SongName        string    `json:"songName"`
	Artist          string    `json:"artist"`
	Cover           string    `json:"cover"`
	DurationMs      int64     `json:"durationMs"`
	PositionSeconds float64   `json:"positionSeconds"`
	IsPlaying       bool      `json:"isPlaying"`
	HlsURL          string    `json:"hlsUrl"`
	ReportedAt      time.Time `json:"reportedAt"`
}

// TrackInfo 本地播放器当前曲目的元信息
type TrackInfo struct {
	SongID     string `json:"songId"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Cover      string `json:"cover"`
	DurationMs int64  `json:"durationMs"`
	HlsURL     string `json:"hlsUrl"`
}

// ChatMessage 聊天消息。Seq 为房间内单调递增序号；ClientKey 为客户端
// 生成的幂等键，服务端原样回显，客户端用它去重本地乐观回显。
type ChatMessage struct {
	Seq       int64       `json:"id"`
	UserID    int64       `json:"userId"`
	Username  string      `json:"username"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
	ClientKey string      `json:"clientKey,omitempty"`
}

// RoomSummary "我的房间" 列表条目
type RoomSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwnerName   string    `json:"ownerName"`
	MemberCount int       `json:"memberCount"`
	IsOwner     bool      `json:"isOwner"`
	JoinedAt    time.Time `json:"joinedAt"`
	Status      string    `json:"status"`
}

// RoomState 加入房间时下发的完整状态
type RoomState struct {
	Room     Room              `json:"room"`
	Members  []Member          `json:"members"`
	Playlist []PlaylistItem    `json:"playlist"`
	Snapshot *PlaybackSnapshot `json:"snapshot,omitempty"`
}
