package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/austinkregel/local-media/termplay/internal/session"
)

// DefaultReplyTimeout bounds how long a connection waits for the run loop
const DefaultReplyTimeout = 5 * time.Second

// Command is an action queued for the run loop. The loop must send exactly
// one value on Reply.
type Command struct {
	Action session.Action
	Reply  chan error
}

// NewCommand creates a command with a buffered reply channel
func NewCommand(a session.Action) Command {
	return Command{Action: a, Reply: make(chan error, 1)}
}

// StatusFunc returns the most recently published view
type StatusFunc func() session.View

// Server handles IPC communication with clients
type Server struct {
	socketPath   string
	commands     chan<- Command
	status       StatusFunc
	replyTimeout time.Duration
	log          *zap.Logger

	listener net.Listener
	mu       sync.Mutex
	clients  map[net.Conn]struct{}
}

// NewServer creates a server that forwards actions to commands and answers
// status from status
func NewServer(socketPath string, commands chan<- Command, status StatusFunc, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		socketPath:   socketPath,
		commands:     commands,
		status:       status,
		replyTimeout: DefaultReplyTimeout,
		log:          log.Named("ipc"),
		clients:      make(map[net.Conn]struct{}),
	}
}

// Listen creates the socket. A stale socket file is replaced, but a socket
// with a live player behind it is an error.
func (s *Server) Listen() error {
	if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("another player is listening on %s", s.socketPath)
	}

	// Remove existing socket file if it exists
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set socket permissions (user-only)
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener
	s.log.Info("listening", zap.String("socket", s.socketPath))
	return nil
}

// Serve accepts connections until ctx is cancelled, then closes every
// client and removes the socket
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("ipc: Serve called before Listen")
	}

	go s.acceptLoop(ctx)

	<-ctx.Done()

	s.mu.Lock()
	clientCount := len(s.clients)
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	s.listener.Close()
	os.RemoveAll(s.socketPath)

	s.log.Info("stopped", zap.Int("closedClients", clientCount))
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept error", zap.Error(err))
			continue
		}

		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()

		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	reader := bufio.NewReader(conn)

	for {
		// Read line (newline-delimited JSON)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		req, err := DecodeRequest(line)
		if err != nil {
			s.log.Debug("invalid request", zap.Error(err))
			s.sendResponse(conn, NewErrorResponse("", "invalid request format"))
			continue
		}

		resp := s.handleRequest(ctx, req)
		if req.Cmd != CmdStatus {
			s.log.Debug("command", zap.String("cmd", string(req.Cmd)), zap.String("id", req.ID),
				zap.Bool("success", resp.Success), zap.String("error", resp.Error))
		}

		if err := s.sendResponse(conn, resp); err != nil {
			s.log.Debug("send error", zap.Error(err))
			return
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req *Request) *Response {
	if req.Cmd == CmdStatus {
		return s.handleStatus(req)
	}

	action, ok := req.Cmd.Action()
	if !ok {
		return NewErrorResponse(req.ID, fmt.Sprintf("unknown command %q", req.Cmd))
	}

	cmd := NewCommand(action)
	timer := time.NewTimer(s.replyTimeout)
	defer timer.Stop()

	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return NewErrorResponse(req.ID, "player shutting down")
	case <-timer.C:
		return NewErrorResponse(req.ID, "player busy")
	}

	select {
	case err := <-cmd.Reply:
		if err != nil {
			return NewErrorResponse(req.ID, err.Error())
		}
	case <-ctx.Done():
		return NewErrorResponse(req.ID, "player shutting down")
	case <-timer.C:
		return NewErrorResponse(req.ID, "timed out waiting for player")
	}

	resp, _ := NewSuccessResponse(req.ID, nil)
	return resp
}

func (s *Server) handleStatus(req *Request) *Response {
	if s.status == nil {
		return NewErrorResponse(req.ID, "status unavailable")
	}
	resp, err := NewSuccessResponse(req.ID, NewStatusResponse(s.status()))
	if err != nil {
		return NewErrorResponse(req.ID, err.Error())
	}
	return resp
}

func (s *Server) sendResponse(conn net.Conn, resp *Response) error {
	data, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = conn.Write(data)
	return err
}
