package room

import (
	"testing"

	"github.com/wfunc/listenroom/models"
)

func TestValidateCode(t *testing.T) {
	valid := []string{"000000", "123456", "999999"}
	for _, code := range valid {
		if err := ValidateCode(code); err != nil {
			t.Errorf("ValidateCode(%q) = %v, want nil", code, err)
		}
	}
	invalid := []string{"", "12345", "1234567", "12345a", "abcdef", " 123456", "12 456"}
	for _, code := range invalid {
		if err := ValidateCode(code); err != ErrValidation {
			t.Errorf("ValidateCode(%q) = %v, want ErrValidation", code, err)
		}
	}
}

func TestManager_CreateRoom(t *testing.T) {
	mgr := NewManager(false, &mockBroadcaster{}, mockStore{})

	r, err := mgr.CreateRoom("My Room", 1, "alice")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	t.Cleanup(r.Close)

	if err := ValidateCode(r.Code); err != nil {
		t.Errorf("Generated code %q is not a valid room code", r.Code)
	}
	if got, ok := mgr.GetRoom(r.Code); !ok || got != r {
		t.Error("Created room must be retrievable by code")
	}
	if mgr.Count() != 1 {
		t.Errorf("Count = %d, want 1", mgr.Count())
	}
}

func TestManager_GeneratedCodesAreUnique(t *testing.T) {
	mgr := NewManager(false, &mockBroadcaster{}, mockStore{})

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		r, err := mgr.CreateRoom("room", int64(i), "user")
		if err != nil {
			t.Fatalf("CreateRoom #%d failed: %v", i, err)
		}
		t.Cleanup(r.Close)
		if seen[r.Code] {
			t.Fatalf("Duplicate room code %s", r.Code)
		}
		seen[r.Code] = true
	}
}

func TestManager_RemoveRoom(t *testing.T) {
	mgr := NewManager(false, &mockBroadcaster{}, mockStore{})
	r, _ := mgr.CreateRoom("room", 1, "alice")
	t.Cleanup(r.Close)

	mgr.RemoveRoom(r.Code)
	if _, ok := mgr.GetRoom(r.Code); ok {
		t.Error("Removed room must not be retrievable")
	}
	if mgr.Count() != 0 {
		t.Errorf("Count = %d, want 0", mgr.Count())
	}
}

func TestManager_Restore(t *testing.T) {
	mgr := NewManager(false, &mockBroadcaster{}, mockStore{})

	if _, err := mgr.Restore(&models.Room{Code: "111111", Status: models.RoomStatusDisbanded}); err != ErrRoomNotFound {
		t.Fatalf("Restoring a disbanded record must fail with ErrRoomNotFound, got %v", err)
	}

	r, err := mgr.Restore(&models.Room{Code: "222222", Name: "old room", OwnerID: 7, Status: models.RoomStatusActive})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	t.Cleanup(r.Close)

	// Restoring the same record again returns the live room.
	again, err := mgr.Restore(&models.Room{Code: "222222", Status: models.RoomStatusActive})
	if err != nil || again != r {
		t.Error("Restore must be idempotent for a live room")
	}

	// The original owner keeps their role on rejoin.
	m, err := r.Join(7, "alice", "")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if m.Role != models.RoleOwner {
		t.Errorf("Restored room owner should rejoin as owner, got %s", m.Role)
	}
}

func TestManager_RestoredRoomKeepsRecordedOwner(t *testing.T) {
	mgr := NewManager(false, &mockBroadcaster{}, mockStore{})

	r, err := mgr.Restore(&models.Room{Code: "333333", Name: "room", OwnerID: 1, Status: models.RoomStatusActive})
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	t.Cleanup(r.Close)

	// A plain member reconnecting first after a restart must not be
	// promoted just because the member map is empty.
	m, err := r.Join(2, "mallory", "")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if m.Role != models.RoleMember {
		t.Fatalf("First rejoiner must stay member, got %s", m.Role)
	}
	if r.OwnerID() != 1 {
		t.Fatalf("Recorded owner must be preserved, got %d", r.OwnerID())
	}

	// The recorded owner gets their role back when they return.
	owner, err := r.Join(1, "alice", "")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if owner.Role != models.RoleOwner {
		t.Errorf("Recorded owner should rejoin as owner, got %s", owner.Role)
	}
}
