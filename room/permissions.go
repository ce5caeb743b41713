package room

import (
	"github.com/wfunc/listenroom/models"
)

// Operation 权限门控覆盖的操作
type Operation string

const (
	OpDisband         Operation = "disband"
	OpGrantControl    Operation = "grantControl"
	OpTransferOwner   Operation = "transferOwner"
	OpAddSong         Operation = "addSong"
	OpRemoveSong      Operation = "removeSong"
	OpReorderSong     Operation = "reorderSong"
	OpPlaybackControl Operation = "playbackControl"
	OpSetMode         Operation = "setMode"
	OpReportPlayback  Operation = "reportPlayback"
)

// CanPerform 是纯判定函数：给定成员和操作，允许或拒绝。
// 目标相关的约束（如 grantControl 的目标不能是房主）由调用方检查。
func CanPerform(m *models.Member, op Operation) bool {
	if m == nil {
		return false
	}

	switch op {
	case OpDisband, OpGrantControl, OpTransferOwner:
		return m.Role == models.RoleOwner
	case OpAddSong, OpRemoveSong, OpReorderSong, OpPlaybackControl:
		if m.Role == models.RoleOwner || m.Role == models.RoleAdmin {
			return true
		}
		return m.Role == models.RoleMember && m.CanControl
	case OpSetMode:
		// 任何成员都可以为自己切换模式
		return true
	case OpReportPlayback:
		// 只有处于 listen 模式的房主是主端
		return m.Role == models.RoleOwner && m.Mode == models.ModeListen
	default:
		return false
	}
}
