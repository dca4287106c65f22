package handlers

import (
	"github.com/google/uuid"
)

// Session is the write side of one live connection as the registry sees it.
// The websocket transport implements it; tests substitute fakes.
type Session interface {
	WriteText(data []byte) error
	Close() error
}

// Entities
type Client struct {
	ID   uuid.UUID
	Name string `json:"name"`
	Conn Session
	IP   string
}

func NewClient(conn Session, IP string) *Client {
	return &Client{
		ID:   uuid.New(),
		Conn: conn,
		IP:   IP,
	}
}
