// server/server.go
package server

import (
	"net/http"
	"net/rpc"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"

	"github.com/wfunc/listenroom/broadcast"
	"github.com/wfunc/listenroom/config"
	"github.com/wfunc/listenroom/logger"
	"github.com/wfunc/listenroom/middleware"
	"github.com/wfunc/listenroom/models"
	"github.com/wfunc/listenroom/monitor"
	"github.com/wfunc/listenroom/persistence"
	"github.com/wfunc/listenroom/room"
	listenroom_rpc "github.com/wfunc/listenroom/rpc"
	"github.com/wfunc/listenroom/services"
	"github.com/wfunc/listenroom/session"
)

type RoomServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	roomService    *services.RoomService
	chatService    *services.ChatService
	broadcaster    broadcast.Broadcaster
	limiter        *middleware.RateLimiter
	monitor        *monitor.Monitor
	rpcServer      *listenroom_rpc.Server
	engine         *gin.Engine
	shutdownChan   chan struct{}
}

func NewRoomServer(cfg *config.Config, db persistence.Database, rdb *goredis.Client) *RoomServer {
	s := &RoomServer{
		cfg:            cfg,
		sessionManager: session.NewManager(),
		roomService:    services.NewRoomService(db),
		chatService:    services.NewChatService(db),
		limiter:        middleware.NewRateLimiter(rdb, cfg.Redis.ChatRatePerSecond),
		monitor:        monitor.NewMonitor("listenroom"),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager)
	s.roomManager = room.NewManager(cfg.Playback.MasterHandoff, s.broadcaster, db)

	rpcServer, err := listenroom_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(listenroom_rpc.NewRoomAdmin(s.roomManager))

	s.engine = s.buildRouter()
	return s
}

func (s *RoomServer) buildRouter() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/ws", s.handleWebSocket)

	api := engine.Group("/api", middleware.Auth(s.cfg.Auth.JWTSecret), s.limiter.RateLimit())
	{
		api.POST("/rooms", s.handleCreateRoom)
		api.GET("/rooms/mine", s.handleMyRooms)
		api.POST("/rooms/:id/join", s.handleJoinRoom)
		api.POST("/rooms/:id/leave", s.handleLeaveRoom)
		api.DELETE("/rooms/:id", s.handleDisbandRoom)
		api.GET("/rooms/:id/messages", s.handleChatHistory)
	}
	return engine
}

func (s *RoomServer) Start() error {
	go s.rpcServer.Start()
	s.monitor.StartServer(s.cfg.Server.MetricsAddress)

	logger.Log.Infof("Room server listening on %s", s.cfg.Server.HTTPAddress)
	return s.engine.Run(s.cfg.Server.HTTPAddress)
}

func (s *RoomServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
}

// liveRoom 取活跃房间；不在内存但持久化记录仍是 active 时恢复它
// （进程重启后房间码依然有效，直到显式解散）。
func (s *RoomServer) liveRoom(code string) (*room.Room, error) {
	if err := room.ValidateCode(code); err != nil {
		return nil, err
	}
	if rm, ok := s.roomManager.GetRoom(code); ok {
		return rm, nil
	}

	record, err := s.roomService.LookupRoom(code)
	if err != nil || record.Status != models.RoomStatusActive {
		return nil, room.ErrRoomNotFound
	}
	return s.roomManager.Restore(record)
}
