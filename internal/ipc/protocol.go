// Package ipc handles the control socket between a running player and
// command-line clients. Messages are newline-delimited JSON.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/austinkregel/local-media/termplay/internal/session"
)

// CommandType represents the type of command
type CommandType string

const (
	CmdPlayPause CommandType = "playpause"
	CmdNext      CommandType = "next"
	CmdPrev      CommandType = "prev"
	CmdSkip      CommandType = "skip"
	CmdLoop      CommandType = "loop"
	CmdQuit      CommandType = "quit"
	CmdStatus    CommandType = "status"
)

// Commands lists every command the server accepts
func Commands() []CommandType {
	return []CommandType{CmdPlayPause, CmdNext, CmdPrev, CmdSkip, CmdLoop, CmdQuit, CmdStatus}
}

// Action returns the session action a command triggers. Status has none.
func (c CommandType) Action() (session.Action, bool) {
	switch c {
	case CmdPlayPause:
		return session.PlayPauseToggle, true
	case CmdNext:
		return session.Next, true
	case CmdPrev:
		return session.Previous, true
	case CmdSkip:
		return session.SkipAhead, true
	case CmdLoop:
		return session.LoopCurrent, true
	case CmdQuit:
		return session.Quit, true
	default:
		return 0, false
	}
}

// Request represents a client request. ID is chosen by the client and
// echoed in the response.
type Request struct {
	ID   string          `json:"id"`
	Cmd  CommandType     `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response represents a server response
type Response struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// StatusResponse is the data for a status command
type StatusResponse struct {
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Track  string `json:"track"`
	Path   string `json:"path"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	State  string `json:"state"` // playing, paused or stopped
}

// NewStatusResponse summarises a session view
func NewStatusResponse(v session.View) StatusResponse {
	state := "playing"
	switch {
	case v.State.Idle():
		state = "stopped"
	case v.State.Paused:
		state = "paused"
	}
	return StatusResponse{
		Index:  v.Snapshot.Index,
		Total:  len(v.Names),
		Track:  v.Snapshot.Track.Name,
		Path:   v.Snapshot.Track.Path,
		Title:  v.Snapshot.Title,
		Artist: v.Snapshot.Artist,
		Album:  v.Snapshot.Album,
		State:  state,
	}
}

// EncodeRequest encodes a request to JSON
func EncodeRequest(req *Request) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeRequest decodes a request from JSON
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response to JSON
func EncodeResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse decodes a response from JSON
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(id string, data interface{}) (*Response, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return &Response{
		ID:      id,
		Success: true,
		Data:    rawData,
	}, nil
}

// NewErrorResponse creates an error response
func NewErrorResponse(id, err string) *Response {
	return &Response{
		ID:      id,
		Success: false,
		Error:   err,
	}
}
