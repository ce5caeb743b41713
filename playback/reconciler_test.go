package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/wfunc/listenroom/models"
)

// fakePlayer records calls instead of producing audio.
type fakePlayer struct {
	mu       sync.Mutex
	current  *models.TrackInfo
	position float64
	playing  bool

	loads int
	seeks []float64
}

func (p *fakePlayer) Load(track models.TrackInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = &track
	p.position = 0
	p.playing = false
	p.loads++
	return nil
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *fakePlayer) Seek(position float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = position
	p.seeks = append(p.seeks, position)
	return nil
}

func (p *fakePlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) Current() *models.TrackInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *fakePlayer) seekCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seeks)
}

func newActiveReconciler(player *fakePlayer) *Reconciler {
	r := NewReconciler(player, 0)
	r.now = func() time.Time { return time.Unix(1000, 0) }
	r.Enter()
	return r
}

func snapshot(songID string, position float64, playing bool) models.PlaybackSnapshot {
	return models.PlaybackSnapshot{
		SongID:          songID,
		SongName:        "song " + songID,
		PositionSeconds: position,
		IsPlaying:       playing,
		ReportedAt:      time.Unix(1000, 0),
	}
}

func TestReconciler_SongChangeAlwaysLoads(t *testing.T) {
	player := &fakePlayer{}
	r := newActiveReconciler(player)

	if err := r.Apply(snapshot("netease_1", 30, true)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if player.loads != 1 {
		t.Fatalf("Expected one load, got %d", player.loads)
	}
	if player.Position() != 30 {
		t.Errorf("Position = %v, want 30", player.Position())
	}
	if !player.IsPlaying() {
		t.Error("Player should be playing after applying a playing snapshot")
	}
	if r.State() != StateSynced {
		t.Errorf("State = %v, want synced", r.State())
	}
}

func TestReconciler_SmallDriftIsTolerated(t *testing.T) {
	player := &fakePlayer{}
	r := newActiveReconciler(player)
	r.Apply(snapshot("netease_1", 30, true))
	before := player.seekCount()

	// 1.5s behind the master, inside the 2s tolerance.
	player.mu.Lock()
	player.position = 28.5
	player.mu.Unlock()
	if err := r.Apply(snapshot("netease_1", 30, true)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if player.seekCount() != before {
		t.Error("Drift within tolerance must not trigger a seek")
	}
}

func TestReconciler_LargeDriftSeeksOnce(t *testing.T) {
	player := &fakePlayer{}
	r := newActiveReconciler(player)
	r.Apply(snapshot("netease_1", 30, true))
	before := player.seekCount()

	player.mu.Lock()
	player.position = 25
	player.mu.Unlock()
	if err := r.Apply(snapshot("netease_1", 30, true)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := player.seekCount() - before; got != 1 {
		t.Fatalf("Expected exactly one corrective seek, got %d", got)
	}
	if player.Position() != 30 {
		t.Errorf("Position = %v, want 30", player.Position())
	}
}

func TestReconciler_ExtrapolatesFromReportedAt(t *testing.T) {
	player := &fakePlayer{}
	r := newActiveReconciler(player)
	// Local clock is 10s past the snapshot timestamp.
	r.now = func() time.Time { return time.Unix(1010, 0) }

	r.Apply(snapshot("netease_1", 30, true))
	if player.Position() != 40 {
		t.Errorf("Position = %v, want 40 (30 + 10s of elapsed playback)", player.Position())
	}

	// Paused snapshots are not extrapolated.
	player2 := &fakePlayer{}
	r2 := newActiveReconciler(player2)
	r2.now = func() time.Time { return time.Unix(1010, 0) }
	r2.Apply(snapshot("netease_2", 30, false))
	if player2.Position() != 30 {
		t.Errorf("Paused position = %v, want 30", player2.Position())
	}
}

func TestReconciler_AlignsPlayState(t *testing.T) {
	player := &fakePlayer{}
	r := newActiveReconciler(player)
	r.Apply(snapshot("netease_1", 30, true))

	if err := r.Apply(snapshot("netease_1", 30.5, false)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if player.IsPlaying() {
		t.Error("Player should pause when the master pauses")
	}
	if player.loads != 1 {
		t.Error("Same-song snapshot must not reload the track")
	}
}

func TestReconciler_InactiveAndOwnerSkip(t *testing.T) {
	player := &fakePlayer{}
	r := NewReconciler(player, 0)

	// Not in listen mode yet.
	r.Apply(snapshot("netease_1", 30, true))
	if player.loads != 0 {
		t.Error("Snapshots must be ignored before Enter")
	}
	if r.State() != StateIdle {
		t.Errorf("State = %v, want idle", r.State())
	}

	// The master never reconciles against itself.
	r.Enter()
	r.SetOwner(true)
	r.Apply(snapshot("netease_1", 30, true))
	if player.loads != 0 {
		t.Error("Owner must ignore inbound snapshots")
	}

	r.SetOwner(false)
	r.Apply(snapshot("netease_1", 30, true))
	if player.loads != 1 {
		t.Error("Follower should apply snapshots after owner flag clears")
	}

	r.Exit()
	if r.State() != StateIdle {
		t.Error("Exit must reset the state machine to idle")
	}
}
