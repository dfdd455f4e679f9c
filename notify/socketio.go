package notify

import (
	"context"
	"net/http"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/models"
)

const (
	recordsRoom       = "records"
	recordUpdateEvent = "record_update"
)

// SocketIO broadcasts record_update events to socket.io clients, which
// join the records room on connect.
type SocketIO struct {
	server *socketio.Server
	log    *zap.SugaredLogger
}

// NewSocketIO creates the socket.io server and starts serving it
func NewSocketIO() *SocketIO {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			polling.Default,
			websocket.Default,
		},
	})
	s := &SocketIO{server: server, log: zap.S()}

	server.OnConnect("/", func(c socketio.Conn) error {
		c.SetContext("")
		c.Join(recordsRoom)
		s.log.Debugw("socket.io client connected", "id", c.ID())
		return nil
	})

	server.OnError("/", func(c socketio.Conn, e error) {
		s.log.Warnw("socket.io error", "error", e)
	})

	server.OnDisconnect("/", func(c socketio.Conn, reason string) {
		s.log.Debugw("socket.io client disconnected", "id", c.ID(), "reason", reason)
	})

	go func() {
		if err := server.Serve(); err != nil {
			s.log.Errorw("socket.io server stopped", "error", err)
		}
	}()

	return s
}

// Handler returns the http handler to mount at /socket.io/
func (s *SocketIO) Handler() http.Handler {
	return s.server
}

// Publish emits {type, id} to the records room
func (s *SocketIO) Publish(_ context.Context, ev models.ChangeEvent) error {
	s.server.BroadcastToRoom("/", recordsRoom, recordUpdateEvent, map[string]interface{}{
		"type": ev.Type,
		"id":   ev.RecordID,
	})
	return nil
}

// Close stops the socket.io server
func (s *SocketIO) Close() error {
	return s.server.Close()
}
