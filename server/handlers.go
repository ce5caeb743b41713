// server/handlers.go
package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/listenroom/logger"
	"github.com/wfunc/listenroom/middleware"
	"github.com/wfunc/listenroom/room"
)

type createRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

// handleCreateRoom 创建房间，创建者自动加入并成为房主
func (s *RoomServer) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	userID := middleware.UserID(c)
	username := middleware.Username(c)

	rm, err := s.roomManager.CreateRoom(req.Name, userID, username)
	if err != nil {
		logger.Log.Errorf("create room: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	avatar, _ := c.Get("avatar")
	avatarStr, _ := avatar.(string)
	if _, err := rm.Join(userID, username, avatarStr); err != nil {
		c.JSON(httpStatus(err), gin.H{"error": errorCode(err)})
		return
	}

	state, err := rm.State()
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": errorCode(err)})
		return
	}
	c.JSON(http.StatusCreated, state)
}

// handleJoinRoom 加入房间，返回成员确认和完整状态
func (s *RoomServer) handleJoinRoom(c *gin.Context) {
	rm, err := s.liveRoom(c.Param("id"))
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": errorCode(err)})
		return
	}

	avatar, _ := c.Get("avatar")
	avatarStr, _ := avatar.(string)
	member, err := rm.Join(middleware.UserID(c), middleware.Username(c), avatarStr)
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": errorCode(err)})
		return
	}

	state, err := rm.State()
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member, "state": state})
}

// handleLeaveRoom 离开房间，不影响房间存续
func (s *RoomServer) handleLeaveRoom(c *gin.Context) {
	rm, err := s.liveRoom(c.Param("id"))
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": errorCode(err)})
		return
	}

	if err := rm.Leave(middleware.UserID(c)); err != nil {
		c.JSON(httpStatus(err), gin.H{"error": errorCode(err)})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleDisbandRoom 房主解散，强制清退所有成员
func (s *RoomServer) handleDisbandRoom(c *gin.Context) {
	rm, err := s.liveRoom(c.Param("id"))
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": errorCode(err)})
		return
	}

	disbanded, err := rm.Disband(middleware.UserID(c))
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": errorCode(err)})
		return
	}
	if disbanded {
		s.roomManager.RemoveRoom(rm.Code)
		s.monitor.SetActiveRooms(s.roomManager.Count())
	}
	c.Status(http.StatusNoContent)
}

// handleMyRooms 当前用户所在的房间列表
func (s *RoomServer) handleMyRooms(c *gin.Context) {
	summaries, err := s.roomService.MyRooms(middleware.UserID(c))
	if err != nil {
		logger.Log.Errorf("my rooms: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// handleChatHistory limit 参数约束的历史消息，序号升序
func (s *RoomServer) handleChatHistory(c *gin.Context) {
	code := c.Param("id")
	if err := room.ValidateCode(code); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorCode(err)})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	messages, err := s.chatService.History(code, limit)
	if err != nil {
		logger.Log.Errorf("chat history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, messages)
}
