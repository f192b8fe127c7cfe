// Package bridge carries directives into the agent and its events, exceptions
// and context updates back out over websocket connections. It is the
// transport the agent itself never touches.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logging "github.com/ipfs/go-log/v2"

	"extmedia/internal/emp"
)

var log = logging.Logger("bridge")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Handler is the agent side of the bridge. *emp.Agent implements it.
type Handler interface {
	HandleDirective(d *emp.Directive, result emp.Result) error
	CancelDirective(messageID string)
	ProvideState(name emp.NamespaceAndName, token emp.StateToken) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Local tool; accept any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server accepts websocket clients and fans outbound frames out to all of
// them. It implements emp.MessageSender, emp.ExceptionSender and
// emp.ContextManager.
type Server struct {
	mu      sync.RWMutex
	handler Handler
	clients map[*client]struct{}
}

var (
	_ emp.MessageSender   = (*Server)(nil)
	_ emp.ExceptionSender = (*Server)(nil)
	_ emp.ContextManager  = (*Server)(nil)
)

// NewServer creates a server with no handler attached.
func NewServer() *Server {
	return &Server{clients: make(map[*client]struct{})}
}

// SetHandler attaches the agent. Directives arriving before that are
// answered with an error frame.
func (s *Server) SetHandler(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *Server) getHandler() Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnw("websocket upgrade", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := newClient(s, conn, r.RemoteAddr, sendBuffer)

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	log.Infow("client connected", "remote", r.RemoteAddr)

	go c.writePump()
	c.readPump()

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
	log.Infow("client disconnected", "remote", r.RemoteAddr)
}

// ListenAndServe serves the bridge on addr at /directives until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/directives", s)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Infow("bridge listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// SendEvent broadcasts an outbound event.
func (s *Server) SendEvent(ev emp.Event) error {
	return s.broadcast(Frame{Type: TypeEvent, Event: &ev})
}

// SendExceptionEncountered broadcasts a failed directive report.
func (s *Server) SendExceptionEncountered(unparsed string, errType emp.ExceptionErrorType, msg string) error {
	return s.broadcast(Frame{Type: TypeException, Exception: &Exception{
		UnparsedDirective: unparsed,
		ErrorType:         errType,
		Message:           msg,
	}})
}

// SetState broadcasts a state document, echoing the request token if any.
func (s *Server) SetState(name emp.NamespaceAndName, state string, token emp.StateToken) error {
	f := Frame{Type: TypeContext, Name: &name, State: json.RawMessage(state)}
	if token.Valid {
		id := token.ID
		f.Token = &id
	}
	return s.broadcast(f)
}

func (s *Server) broadcast(f Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.enqueue(b)
	}
	return nil
}

// dispatch handles one inbound frame from c.
func (s *Server) dispatch(c *client, f Frame) {
	h := s.getHandler()
	if h == nil {
		c.reply(Frame{Type: TypeError, Message: "agent not ready"})
		return
	}

	switch f.Type {
	case TypeDirective:
		if f.Directive == nil {
			c.reply(Frame{Type: TypeError, Message: "directive frame without directive"})
			return
		}
		res := &result{client: c, messageID: f.Directive.MessageID}
		if err := h.HandleDirective(f.Directive, res); err != nil {
			res.SetFailed(err.Error())
		}
	case TypeCancel:
		h.CancelDirective(f.MessageID)
	case TypeGetState:
		if f.Name == nil {
			c.reply(Frame{Type: TypeError, Message: "getState frame without name"})
			return
		}
		token := emp.NoToken
		if f.Token != nil {
			token = emp.Token(*f.Token)
		}
		if err := h.ProvideState(*f.Name, token); err != nil {
			c.reply(Frame{Type: TypeError, Message: err.Error()})
		}
	default:
		c.reply(Frame{Type: TypeError, Message: "unknown frame type " + f.Type})
	}
}

// result reports a directive's outcome to the client that sent it.
type result struct {
	client    *client
	messageID string
}

func (r *result) SetCompleted() {
	r.client.reply(Frame{Type: TypeResult, MessageID: r.messageID, Status: StatusCompleted})
}

func (r *result) SetFailed(msg string) {
	r.client.reply(Frame{Type: TypeResult, MessageID: r.messageID, Status: StatusFailed, Message: msg})
}

type client struct {
	server *Server
	conn   *websocket.Conn
	remote string
	send   chan []byte

	once sync.Once
	done chan struct{}
}

func newClient(s *Server, conn *websocket.Conn, remote string, buffer int) *client {
	return &client{server: s, conn: conn, remote: remote, send: make(chan []byte, buffer), done: make(chan struct{})}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// enqueue queues b for writing. A client that cannot keep up is
// disconnected rather than left with a gap in its frames.
func (c *client) enqueue(b []byte) {
	select {
	case <-c.done:
	case c.send <- b:
	default:
		log.Warnw("client too slow, disconnecting", "remote", c.remote)
		c.close()
	}
}

func (c *client) reply(f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		log.Errorw("encode frame", "type", f.Type, "err", err)
		return
	}
	c.enqueue(b)
}

func (c *client) readPump() {
	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debugw("read", "err", err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.reply(Frame{Type: TypeError, Message: "bad frame: " + err.Error()})
			continue
		}
		c.server.dispatch(c, f)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
