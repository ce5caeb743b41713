package room

import (
	"fmt"
	"testing"

	"github.com/wfunc/listenroom/models"
)

func newItem(songID string) *models.PlaylistItem {
	return &models.PlaylistItem{
		SongID: songID,
		Name:   "song " + songID,
		Source: models.SourceNetease,
	}
}

// checkContiguous verifies positions form exactly [0, len) in order.
func checkContiguous(t *testing.T, p *Playlist) {
	t.Helper()
	items := p.Items()
	for i, it := range items {
		if it.Position != i {
			t.Fatalf("position at index %d is %d, playlist not contiguous: %+v", i, it.Position, items)
		}
	}
}

func TestPlaylist_AddAssignsPositions(t *testing.T) {
	p := NewPlaylist()
	for i := 0; i < 5; i++ {
		if err := p.Add(newItem(fmt.Sprintf("netease_%d", i))); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if p.Len() != 5 {
		t.Fatalf("Expected 5 items, got %d", p.Len())
	}
	checkContiguous(t, p)
}

func TestPlaylist_AddDuplicateSong(t *testing.T) {
	p := NewPlaylist()
	if err := p.Add(newItem("netease_1")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := p.Add(newItem("netease_1")); err != ErrValidation {
		t.Fatalf("Expected ErrValidation for duplicate song, got %v", err)
	}
	if p.Len() != 1 {
		t.Errorf("Duplicate add should not change the playlist, len=%d", p.Len())
	}
}

func TestPlaylist_RemoveRenumbers(t *testing.T) {
	// [A@0, B@1, C@2]; removeSong(1) => [A@0, C@1]
	p := NewPlaylist()
	p.Add(newItem("A"))
	p.Add(newItem("B"))
	p.Add(newItem("C"))

	removed, err := p.Remove(1)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed.SongID != "B" {
		t.Errorf("Expected to remove B, removed %s", removed.SongID)
	}

	items := p.Items()
	if len(items) != 2 || items[0].SongID != "A" || items[1].SongID != "C" {
		t.Fatalf("Unexpected playlist after remove: %+v", items)
	}
	checkContiguous(t, p)
}

func TestPlaylist_RemoveOutOfRange(t *testing.T) {
	p := NewPlaylist()
	p.Add(newItem("A"))

	for _, pos := range []int{-1, 1, 5} {
		if _, err := p.Remove(pos); err != ErrOutOfRange {
			t.Errorf("Remove(%d): expected ErrOutOfRange, got %v", pos, err)
		}
	}
	if p.Len() != 1 {
		t.Errorf("Failed removes must not change the playlist, len=%d", p.Len())
	}
}

func TestPlaylist_Reorder(t *testing.T) {
	p := NewPlaylist()
	p.Add(newItem("A"))
	p.Add(newItem("B"))
	p.Add(newItem("C"))

	if err := p.Reorder(0, 2); err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	items := p.Items()
	want := []string{"B", "C", "A"}
	for i, w := range want {
		if items[i].SongID != w {
			t.Fatalf("After Reorder(0,2) expected %v, got %+v", want, items)
		}
	}
	checkContiguous(t, p)

	if err := p.Reorder(2, 0); err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	items = p.Items()
	want = []string{"A", "B", "C"}
	for i, w := range want {
		if items[i].SongID != w {
			t.Fatalf("After Reorder(2,0) expected %v, got %+v", want, items)
		}
	}
	checkContiguous(t, p)
}

func TestPlaylist_ReorderOutOfRange(t *testing.T) {
	p := NewPlaylist()
	p.Add(newItem("A"))
	p.Add(newItem("B"))

	if err := p.Reorder(0, 2); err != ErrOutOfRange {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
	if err := p.Reorder(-1, 0); err != ErrOutOfRange {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}

// TestPlaylist_ContiguityUnderMixedOps runs a fixed sequence of mutations
// and checks the position invariant after every step.
func TestPlaylist_ContiguityUnderMixedOps(t *testing.T) {
	p := NewPlaylist()
	for i := 0; i < 8; i++ {
		p.Add(newItem(fmt.Sprintf("s%d", i)))
		checkContiguous(t, p)
	}
	steps := []func() error{
		func() error { _, err := p.Remove(3); return err },
		func() error { return p.Reorder(0, 5) },
		func() error { _, err := p.Remove(0); return err },
		func() error { return p.Reorder(4, 1) },
		func() error { return p.Add(newItem("s8")) },
		func() error { _, err := p.Remove(p.Len() - 1); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		checkContiguous(t, p)
	}
}
