package room

import "errors"

// 房间错误定义

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotMaster        = errors.New("not the playback master")
	ErrValidation       = errors.New("validation failed")
	ErrOutOfRange       = errors.New("playlist index out of range")
	ErrNotConnected     = errors.New("not connected")
	ErrNotInRoom        = errors.New("not a member of this room")
)
