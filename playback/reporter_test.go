package playback

import (
	"os"
	"testing"
	"time"

	"github.com/wfunc/listenroom/logger"
	"github.com/wfunc/listenroom/models"
	"github.com/wfunc/listenroom/timer"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func startReporter(t *testing.T, player Player, interval time.Duration) (*Reporter, chan models.PlaybackSnapshot) {
	t.Helper()
	reports := make(chan models.PlaybackSnapshot, 64)
	timers := timer.NewTimerManager()
	t.Cleanup(timers.Stop)

	r := NewReporter(player, func(snap models.PlaybackSnapshot) error {
		reports <- snap
		return nil
	}, timers, interval)
	r.Start()
	t.Cleanup(r.Stop)
	return r, reports
}

func waitReport(t *testing.T, reports chan models.PlaybackSnapshot) models.PlaybackSnapshot {
	t.Helper()
	select {
	case snap := <-reports:
		return snap
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for a playback report")
		return models.PlaybackSnapshot{}
	}
}

func TestReporter_FirstReportKeepsPosition(t *testing.T) {
	player := &fakePlayer{}
	player.Load(models.TrackInfo{SongID: "netease_1", Name: "first"})
	player.Seek(25)
	player.Play()

	r, reports := startReporter(t, player, time.Hour)
	r.OnPlay()

	snap := waitReport(t, reports)
	if snap.SongID != "netease_1" {
		t.Errorf("SongID = %s, want netease_1", snap.SongID)
	}
	if snap.PositionSeconds != 25 {
		t.Errorf("First report must keep the real position, got %v", snap.PositionSeconds)
	}
	if !snap.IsPlaying {
		t.Error("IsPlaying should be true")
	}
}

func TestReporter_TrackChangeReportsZero(t *testing.T) {
	player := &fakePlayer{}
	player.Load(models.TrackInfo{SongID: "netease_1"})
	player.Play()

	r, reports := startReporter(t, player, time.Hour)
	r.OnPlay()
	waitReport(t, reports)

	player.Load(models.TrackInfo{SongID: "netease_2"})
	player.Seek(3) // buffered a bit before the event fires
	player.Play()
	r.OnTrackChange()

	snap := waitReport(t, reports)
	if snap.SongID != "netease_2" {
		t.Errorf("SongID = %s, want netease_2", snap.SongID)
	}
	if snap.PositionSeconds != 0 {
		t.Errorf("Track change must report position 0, got %v", snap.PositionSeconds)
	}
}

func TestReporter_SyncRequestWhilePaused(t *testing.T) {
	player := &fakePlayer{}
	player.Load(models.TrackInfo{SongID: "netease_1"})
	player.Seek(50)

	r, reports := startReporter(t, player, time.Hour)
	r.OnSyncRequest()

	snap := waitReport(t, reports)
	if snap.PositionSeconds != 50 || snap.IsPlaying {
		t.Errorf("Sync request must report even while paused, got %+v", snap)
	}
}

func TestReporter_HeartbeatOnlyWhilePlaying(t *testing.T) {
	player := &fakePlayer{}
	player.Load(models.TrackInfo{SongID: "netease_1"})

	_, reports := startReporter(t, player, 20*time.Millisecond)

	// Paused: heartbeats are swallowed. The wait spans several timer
	// ticks so ticks actually fire during it.
	select {
	case snap := <-reports:
		t.Fatalf("No heartbeat expected while paused, got %+v", snap)
	case <-time.After(300 * time.Millisecond):
	}

	player.Play()
	waitReport(t, reports)
}

func TestReporter_NoReportWithoutTrack(t *testing.T) {
	player := &fakePlayer{}
	r, reports := startReporter(t, player, time.Hour)
	r.OnPlay()
	r.OnSyncRequest()

	select {
	case snap := <-reports:
		t.Fatalf("No report expected before any track is loaded, got %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}
