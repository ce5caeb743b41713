package room

import (
	"testing"

	"github.com/wfunc/listenroom/models"
)

func member(role models.Role, mode models.Mode, canControl bool) *models.Member {
	return &models.Member{UserID: 1, Role: role, Mode: mode, CanControl: canControl}
}

func TestCanPerform(t *testing.T) {
	tests := []struct {
		name string
		m    *models.Member
		op   Operation
		want bool
	}{
		{"owner disband", member(models.RoleOwner, models.ModeChat, false), OpDisband, true},
		{"admin disband", member(models.RoleAdmin, models.ModeChat, false), OpDisband, false},
		{"member disband", member(models.RoleMember, models.ModeChat, true), OpDisband, false},

		{"owner grant", member(models.RoleOwner, models.ModeChat, false), OpGrantControl, true},
		{"member grant", member(models.RoleMember, models.ModeChat, true), OpGrantControl, false},

		{"owner add song", member(models.RoleOwner, models.ModeChat, false), OpAddSong, true},
		{"admin add song", member(models.RoleAdmin, models.ModeChat, false), OpAddSong, true},
		{"member add song no grant", member(models.RoleMember, models.ModeChat, false), OpAddSong, false},
		{"member add song with grant", member(models.RoleMember, models.ModeChat, true), OpAddSong, true},
		{"member reorder with grant", member(models.RoleMember, models.ModeListen, true), OpReorderSong, true},

		{"owner playback control", member(models.RoleOwner, models.ModeListen, false), OpPlaybackControl, true},
		{"member playback control no grant", member(models.RoleMember, models.ModeListen, false), OpPlaybackControl, false},
		{"member playback control with grant", member(models.RoleMember, models.ModeListen, true), OpPlaybackControl, true},

		{"any set mode", member(models.RoleMember, models.ModeChat, false), OpSetMode, true},

		{"owner in listen reports", member(models.RoleOwner, models.ModeListen, false), OpReportPlayback, true},
		{"owner in chat cannot report", member(models.RoleOwner, models.ModeChat, false), OpReportPlayback, false},
		{"admin cannot report", member(models.RoleAdmin, models.ModeListen, false), OpReportPlayback, false},
		{"member with grant cannot report", member(models.RoleMember, models.ModeListen, true), OpReportPlayback, false},

		{"nil member", nil, OpSetMode, false},
	}

	for _, tt := range tests {
		if got := CanPerform(tt.m, tt.op); got != tt.want {
			t.Errorf("%s: CanPerform = %v, want %v", tt.name, got, tt.want)
		}
	}
}
