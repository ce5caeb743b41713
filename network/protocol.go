package network

const (
	MsgTypeHeartbeat = 1
	MsgTypeError     = 2

	MsgTypeSetMode       = 101
	MsgTypeLeaveRoom     = 102
	MsgTypeGrantControl  = 103
	MsgTypeTransferOwner = 104

	MsgTypeAddSong     = 201
	MsgTypeRemoveSong  = 202
	MsgTypeReorderSong = 203

	MsgTypeReportPlayback  = 301
	MsgTypeRequestPlayback = 302

	MsgTypeSendChat = 401

	MsgTypeJoined           = 501
	MsgTypeMemberList       = 502
	MsgTypePlaylist         = 503
	MsgTypePlaybackSnapshot = 504
	MsgTypeChatMessage      = 505
	MsgTypeMasterModeChange = 506
	MsgTypeRoleChange       = 507
	MsgTypeSyncRequest      = 508
	MsgTypeDisband          = 509
)
