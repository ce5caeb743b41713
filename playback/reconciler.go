// playback/reconciler.go
package playback

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/wfunc/listenroom/models"
)

// DriftTolerance 跟随端允许的进度偏差（秒）。小于该值不纠偏，
// 避免网络抖动和时钟偏差造成的可闻卡顿。设计常量，可经配置覆盖。
const DriftTolerance = 2.0

// SyncState 跟随端同步状态
type SyncState int

const (
	StateIdle SyncState = iota
	StateSyncing
	StateSynced
)

func (s SyncState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// Reconciler 跟随端的对账状态机。只由入站快照驱动，本地播放事件
// 从不触发对账；自己是房主时完全跳过（主端不和自己对账）。
type Reconciler struct {
	player    Player
	tolerance float64

	mu      sync.Mutex
	state   SyncState
	active  bool
	isOwner bool

	// now 可在测试里替换
	now func() time.Time
}

func NewReconciler(player Player, tolerance float64) *Reconciler {
	if tolerance <= 0 {
		tolerance = DriftTolerance
	}
	return &Reconciler{
		player:    player,
		tolerance: tolerance,
		state:     StateIdle,
		now:       time.Now,
	}
}

// Enter 进入 listen 模式，开始接受快照
func (r *Reconciler) Enter() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
}

// Exit 退出 listen 模式，回到 idle
func (r *Reconciler) Exit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.state = StateIdle
}

// SetOwner 标记本端是否为房主
func (r *Reconciler) SetOwner(owner bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isOwner = owner
}

// State 当前同步状态
func (r *Reconciler) State() SyncState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Apply 消费一个快照，把本地播放器驱动到与主端一致。
// 换曲无条件走加载路径；同曲时只对齐播放状态，进度偏差超过
// 容忍值才做一次纠偏 seek。
func (r *Reconciler) Apply(snap models.PlaybackSnapshot) error {
	r.mu.Lock()
	if !r.active || r.isOwner {
		r.mu.Unlock()
		return nil
	}
	r.state = StateSyncing
	r.mu.Unlock()

	if err := r.apply(snap); err != nil {
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.state = StateSynced
	r.mu.Unlock()
	return nil
}

func (r *Reconciler) apply(snap models.PlaybackSnapshot) error {
	// 用服务端打点的 ReportedAt 外推主端当前进度
	target := snap.PositionSeconds
	if snap.IsPlaying && !snap.ReportedAt.IsZero() {
		target += r.now().Sub(snap.ReportedAt).Seconds()
	}

	current := r.player.Current()
	if current == nil || current.SongID != snap.SongID {
		// 曲目变了，偏差多少都要切过去
		track := models.TrackInfo{
			SongID:     snap.SongID,
			Name:       snap.SongName,
			Artist:     snap.Artist,
			Cover:      snap.Cover,
			DurationMs: snap.DurationMs,
			HlsURL:     snap.HlsURL,
		}
		if err := r.player.Load(track); err != nil {
			return fmt.Errorf("load %s: %w", snap.SongID, err)
		}
		if err := r.player.Seek(target); err != nil {
			return fmt.Errorf("seek %s: %w", snap.SongID, err)
		}
		return r.applyPlaying(snap.IsPlaying)
	}

	if snap.IsPlaying != r.player.IsPlaying() {
		if err := r.applyPlaying(snap.IsPlaying); err != nil {
			return err
		}
	}

	drift := math.Abs(r.player.Position() - target)
	if drift > r.tolerance {
		if err := r.player.Seek(target); err != nil {
			return fmt.Errorf("corrective seek: %w", err)
		}
	}
	return nil
}

func (r *Reconciler) applyPlaying(playing bool) error {
	if playing {
		return r.player.Play()
	}
	return r.player.Pause()
}
