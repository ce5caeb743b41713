package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/listenroom/logger"
	"github.com/wfunc/listenroom/room"
)

// Server manages the RPC listener for the admin surface.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// RoomAdmin exposes ops queries over net/rpc.
type RoomAdmin struct {
	roomManager *room.Manager
}

func NewRoomAdmin(rm *room.Manager) *RoomAdmin {
	return &RoomAdmin{roomManager: rm}
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Codes []string
}

// ListRooms returns the codes of all live rooms.
func (a *RoomAdmin) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Codes = a.roomManager.Codes()
	return nil
}

type RoomStatsArgs struct {
	Code string
}

type RoomStatsReply struct {
	Code        string
	MemberCount int
	OwnerID     int64
}

// GetRoomStats returns live counters for one room.
func (a *RoomAdmin) GetRoomStats(args *RoomStatsArgs, reply *RoomStatsReply) error {
	rm, exists := a.roomManager.GetRoom(args.Code)
	if !exists {
		return room.ErrRoomNotFound
	}
	reply.Code = args.Code
	reply.MemberCount = rm.MemberCount()
	reply.OwnerID = rm.OwnerID()
	return nil
}
