// server/ws.go
package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wfunc/listenroom/logger"
	"github.com/wfunc/listenroom/middleware"
	"github.com/wfunc/listenroom/models"
	"github.com/wfunc/listenroom/network"
	"github.com/wfunc/listenroom/room"
	"github.com/wfunc/listenroom/session"
)

// ws 请求负载

type setModeRequest struct {
	Mode models.Mode `json:"mode"`
}

type grantControlRequest struct {
	TargetID int64 `json:"targetId"`
	Grant    bool  `json:"grant"`
}

type transferOwnerRequest struct {
	TargetID int64 `json:"targetId"`
}

type addSongRequest struct {
	SongID          string        `json:"songId"`
	Name            string        `json:"name"`
	Artist          string        `json:"artist"`
	Cover           string        `json:"cover"`
	DurationSeconds int           `json:"durationSeconds"`
	Source          models.Source `json:"source"`
}

type removeSongRequest struct {
	Position int `json:"position"`
}

type reorderSongRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type sendChatRequest struct {
	Content   string `json:"content"`
	ClientKey string `json:"clientKey"`
}

// handleWebSocket 实时通道入口。令牌和房间码走查询参数，
// 鉴权通过后才升级连接。
func (s *RoomServer) handleWebSocket(c *gin.Context) {
	claims, err := middleware.ParseToken(c.Query("token"), s.cfg.Auth.JWTSecret)
	if err != nil {
		c.AbortWithStatus(401)
		return
	}

	rm, err := s.liveRoom(c.Query("room"))
	if err != nil {
		c.AbortWithStatus(httpStatus(err))
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	sess.Bind(claims.UserID, claims.Username, rm.Code)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlineMembers()

	logger.Log.Infof("New connection from %s, user %d, room %s, session %s",
		wsConn.RemoteAddr(), claims.UserID, rm.Code, sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed, user %d, session %s", claims.UserID, sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlineMembers()
		rm.HandleDisconnect(claims.UserID)
		wsConn.Close()
	}()

	// 加入（重连时幂等）并下发完整状态
	if _, err := rm.Join(claims.UserID, claims.Username, claims.Avatar); err != nil {
		s.sendError(sess, network.MsgTypeJoined, err)
		return
	}
	s.monitor.SetActiveRooms(s.roomManager.Count())
	if state, err := rm.State(); err == nil {
		sess.SendJSON(network.MsgTypeJoined, state)
	}

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			start := time.Now()
			s.monitor.IncMessagesReceived()
			s.handlePacket(sess, rm, packet)
			s.monitor.ObserveMessageLatency(time.Since(start))
		}
	}
}

func (s *RoomServer) handlePacket(sess *session.Session, rm *room.Room, packet *network.Packet) {
	userID := sess.UserID

	var err error
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
		return

	case network.MsgTypeSetMode:
		var req setModeRequest
		if err = json.Unmarshal(packet.Data, &req); err == nil {
			err = rm.SetMode(userID, req.Mode)
		}

	case network.MsgTypeLeaveRoom:
		err = rm.Leave(userID)

	case network.MsgTypeGrantControl:
		var req grantControlRequest
		if err = json.Unmarshal(packet.Data, &req); err == nil {
			err = rm.GrantControl(userID, req.TargetID, req.Grant)
		}

	case network.MsgTypeTransferOwner:
		var req transferOwnerRequest
		if err = json.Unmarshal(packet.Data, &req); err == nil {
			err = rm.TransferOwner(userID, req.TargetID)
		}

	case network.MsgTypeAddSong:
		var req addSongRequest
		if err = json.Unmarshal(packet.Data, &req); err == nil {
			err = rm.AddSong(userID, models.PlaylistItem{
				SongID:          req.SongID,
				Name:            req.Name,
				Artist:          req.Artist,
				Cover:           req.Cover,
				DurationSeconds: req.DurationSeconds,
				Source:          req.Source,
			})
		}

	case network.MsgTypeRemoveSong:
		var req removeSongRequest
		if err = json.Unmarshal(packet.Data, &req); err == nil {
			err = rm.RemoveSong(userID, req.Position)
		}

	case network.MsgTypeReorderSong:
		var req reorderSongRequest
		if err = json.Unmarshal(packet.Data, &req); err == nil {
			err = rm.ReorderSong(userID, req.From, req.To)
		}

	case network.MsgTypeReportPlayback:
		var snap models.PlaybackSnapshot
		if err = json.Unmarshal(packet.Data, &snap); err == nil {
			if err = rm.ReportPlayback(userID, snap); err == nil {
				s.monitor.IncSnapshotsRelayed()
			}
		}

	case network.MsgTypeRequestPlayback:
		err = rm.RequestPlayback(userID)

	case network.MsgTypeSendChat:
		var req sendChatRequest
		if err = json.Unmarshal(packet.Data, &req); err == nil {
			if !s.limiter.AllowUser(context.Background(), userID) {
				err = errRateLimited
				break
			}
			if _, err = rm.SendChat(userID, req.Content, req.ClientKey); err == nil {
				s.monitor.IncChatMessages()
			}
		}

	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		return
	}

	if err != nil {
		s.sendError(sess, packet.MsgID, err)
	}
}

// sendError 错误只回给发起方
func (s *RoomServer) sendError(sess *session.Session, op uint16, err error) {
	payload := errorPayload{
		Op:      op,
		Code:    errorCode(err),
		Message: err.Error(),
	}
	if sendErr := sess.SendJSON(network.MsgTypeError, payload); sendErr != nil {
		logger.Log.Warnf("send error packet to %s: %v", sess.GetID(), sendErr)
	}
}
