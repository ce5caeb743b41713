package playback

import (
	"github.com/wfunc/listenroom/models"
)

// Player 本地播放器。Reporter 和 Reconciler 只通过这个接口驱动播放，
// 从不直接指挥其他成员的播放器。
type Player interface {
	// Load 加载曲目并定位到 0，返回时曲目已可播放
	Load(track models.TrackInfo) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	Position() float64
	IsPlaying() bool
	// Current 当前曲目，未加载时为 nil
	Current() *models.TrackInfo
}

// ReportFunc 把快照送往服务器的回调
type ReportFunc func(snap models.PlaybackSnapshot) error
