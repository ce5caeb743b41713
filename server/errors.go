// server/errors.go
package server

import (
	"errors"
	"net/http"

	"github.com/wfunc/listenroom/room"
)

// 错误分类：全部是局部可恢复错误，只回给发起方，从不影响其他成员

var errRateLimited = errors.New("chat rate limit exceeded")

type errorPayload struct {
	Op      uint16 `json:"op"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "RoomNotFound"
	case errors.Is(err, room.ErrPermissionDenied):
		return "PermissionDenied"
	case errors.Is(err, room.ErrNotMaster):
		return "NotMaster"
	case errors.Is(err, room.ErrValidation):
		return "ValidationError"
	case errors.Is(err, room.ErrOutOfRange):
		return "OutOfRange"
	case errors.Is(err, room.ErrNotInRoom):
		return "NotInRoom"
	case errors.Is(err, room.ErrNotConnected):
		return "NotConnected"
	case errors.Is(err, errRateLimited):
		return "RateLimited"
	default:
		return "Internal"
	}
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrPermissionDenied), errors.Is(err, room.ErrNotMaster):
		return http.StatusForbidden
	case errors.Is(err, room.ErrValidation), errors.Is(err, room.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, room.ErrNotInRoom):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
