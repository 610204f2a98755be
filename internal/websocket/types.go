package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeTagging represents a completed tagging request
	EventTypeTagging EventType = "tagging"
	// EventTypeIngest represents ingest pipeline progress
	EventTypeIngest EventType = "ingest"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// TaggingEvent reports one tagging request
type TaggingEvent struct {
	RequestID    string  `json:"request_id"`
	ClientIP     string  `json:"client_ip"`
	Sentences    int     `json:"sentences"`
	Tokens       int     `json:"tokens"`
	Spans        int     `json:"spans"`
	ProcessingMS float64 `json:"processing_ms"`
}

// IngestEvent reports ingest pipeline progress
type IngestEvent struct {
	File            string `json:"file"`
	TotalRecords    int64  `json:"total_records"`
	ProcessedOK     int64  `json:"processed_ok"`
	ProcessedFailed int64  `json:"processed_failed"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	TagsetSize       int    `json:"tagset_size"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
	Message  string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to the server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
}
