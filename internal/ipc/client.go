package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// ErrNotRunning is returned when no player is listening on the socket
var ErrNotRunning = errors.New("player is not running")

// Client sends single commands to a running player
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for socketPath
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: DefaultReplyTimeout + time.Second}
}

// Send issues cmd and waits for the matching response
func (c *Client) Send(ctx context.Context, cmd CommandType) (*Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	conn.SetDeadline(deadline)

	req := &Request{ID: uuid.NewString(), Cmd: cmd}
	data, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	resp, err := DecodeResponse(line)
	if err != nil {
		return nil, err
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if !resp.Success {
		return resp, fmt.Errorf("%s: %s", cmd, resp.Error)
	}
	return resp, nil
}

// Status fetches the player status
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	resp, err := c.Send(ctx, CmdStatus)
	if err != nil {
		return nil, err
	}
	var st StatusResponse
	if err := json.Unmarshal(resp.Data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &st, nil
}
