// playback/reporter.go
package playback

import (
	"time"

	"github.com/wfunc/listenroom/logger"
	"github.com/wfunc/listenroom/models"
	"github.com/wfunc/listenroom/timer"
)

// 上报触发事件
type reportEvent int

const (
	evPlay reportEvent = iota
	evPause
	evSeekDone
	evTrackChange
	evSyncRequest
	evTick
)

// Reporter 只在主端（listen 模式的房主）运行。事件驱动上报、
// 播放中的心跳兜底、换曲立即上报，以及响应跟随端的同步请求，
// 全部汇入同一个协程，避免重复或乱序的上报。
type Reporter struct {
	player   Player
	report   ReportFunc
	timers   *timer.TimerManager
	interval time.Duration

	events     chan reportEvent
	closeChan  chan struct{}
	timerID    int64
	lastSongID string
}

// NewReporter interval 是心跳间隔，参考节奏为 5 秒
func NewReporter(player Player, report ReportFunc, timers *timer.TimerManager, interval time.Duration) *Reporter {
	return &Reporter{
		player:    player,
		report:    report,
		timers:    timers,
		interval:  interval,
		events:    make(chan reportEvent, 32),
		closeChan: make(chan struct{}),
	}
}

// Start 启动上报协程和心跳定时器
func (r *Reporter) Start() {
	r.timerID = r.timers.AddTimer(r.interval, r.interval, func() {
		r.signal(evTick)
	})
	go r.loop()
}

// Stop 停止上报。之后的事件全部丢弃。
func (r *Reporter) Stop() {
	r.timers.RemoveTimer(r.timerID)
	close(r.closeChan)
}

// OnPlay 本地开始播放
func (r *Reporter) OnPlay() { r.signal(evPlay) }

// OnPause 本地暂停
func (r *Reporter) OnPause() { r.signal(evPause) }

// OnSeekComplete 本地完成一次 seek
func (r *Reporter) OnSeekComplete() { r.signal(evSeekDone) }

// OnTrackChange 本地换曲，立即以 position=0 上报
func (r *Reporter) OnTrackChange() { r.signal(evTrackChange) }

// OnSyncRequest 收到跟随端的同步请求，立即带外上报一次
func (r *Reporter) OnSyncRequest() { r.signal(evSyncRequest) }

func (r *Reporter) signal(ev reportEvent) {
	select {
	case r.events <- ev:
	case <-r.closeChan:
	default:
		// 队列满说明上报风暴，丢掉这个事件，心跳会兜底
	}
}

func (r *Reporter) loop() {
	for {
		select {
		case ev := <-r.events:
			r.emit(ev)
		case <-r.closeChan:
			return
		}
	}
}

// emit 构造快照并上报。换曲（显式事件或与上次上报的 songId 不一致）
// 一律按新曲处理，position 归零。心跳只在播放中生效。
func (r *Reporter) emit(ev reportEvent) {
	track := r.player.Current()
	if track == nil {
		return
	}

	if ev == evTick && !r.player.IsPlaying() {
		return
	}

	snap := models.PlaybackSnapshot{
		SongID:          track.SongID,
		SongName:        track.Name,
		Artist:          track.Artist,
		Cover:           track.Cover,
		DurationMs:      track.DurationMs,
		PositionSeconds: r.player.Position(),
		IsPlaying:       r.player.IsPlaying(),
		HlsURL:          track.HlsURL,
	}

	// 首次上报没有可比较的上一曲，不算换曲
	if ev == evTrackChange || (r.lastSongID != "" && track.SongID != r.lastSongID) {
		snap.PositionSeconds = 0
	}
	r.lastSongID = track.SongID

	if err := r.report(snap); err != nil {
		logger.Log.Warnf("playback report failed: %v", err)
	}
}
