// ABOUTME: WebSocket client for the GroundLink station connection
// ABOUTME: Handles handshake and routes audio frames and status messages
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/GroundLink-Project/groundlink-go/internal/audio"
	"github.com/GroundLink-Project/groundlink-go/internal/player"
	"github.com/GroundLink-Project/groundlink-go/internal/protocol"
	"github.com/gorilla/websocket"
)

// AudioSink receives decoded sample batches from the station
type AudioSink interface {
	PlayAudioSamples(batch audio.SampleBatch)
}

// Config holds client configuration
type Config struct {
	ServerAddr string
	ClientID   string
	Name       string
}

// Client is a WebSocket connection to one ground station
type Client struct {
	config Config
	sink   AudioSink
	conn   *websocket.Conn
	mu     sync.RWMutex

	// Status carries station tracking updates for the dashboard
	Status chan protocol.StationStatus

	connected   bool
	stationName string
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewClient creates a station client delivering audio to sink
func NewClient(config Config, sink AudioSink) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		sink:   sink,
		Status: make(chan protocol.StationStatus, 10),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake.
// Any audio buffered from a previous connection is flushed so playback
// resumes at live latency.
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: "/groundlink"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	player.TriggerFlush(player.AllVFOs)

	go c.readMessages()

	return nil
}

// handshake exchanges hello messages with the station
func (c *Client) handshake() error {
	hello := protocol.Message{
		Type: "client/hello",
		Payload: protocol.ClientHello{
			ClientID: c.config.ClientID,
			Name:     c.config.Name,
			Version:  protocol.ProtocolVersion,
		},
	}

	if err := c.sendJSON(hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read station/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse station/hello: %w", err)
	}
	if msg.Type != "station/hello" {
		return fmt.Errorf("expected station/hello, got %s", msg.Type)
	}

	payloadBytes, _ := json.Marshal(msg.Payload)
	var stationHello protocol.StationHello
	if err := json.Unmarshal(payloadBytes, &stationHello); err != nil {
		return fmt.Errorf("failed to parse station/hello payload: %w", err)
	}

	c.mu.Lock()
	c.stationName = stationHello.Name
	c.mu.Unlock()

	log.Printf("Handshake complete with station %q (%d VFOs)", stationHello.Name, stationHello.VFOCount)

	return nil
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg protocol.Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("Read error: %v", err)
			return
		}

		if messageType == websocket.BinaryMessage {
			c.handleBinaryMessage(data)
		} else if messageType == websocket.TextMessage {
			c.handleJSONMessage(data)
		}
	}
}

// handleBinaryMessage decodes audio frames and hands them to the engine.
// A malformed frame is dropped with a warning; it never kills the reader.
func (c *Client) handleBinaryMessage(data []byte) {
	batch, err := protocol.DecodeAudioFrame(data)
	if err != nil {
		log.Printf("Dropping bad audio frame: %v", err)
		return
	}

	c.sink.PlayAudioSamples(batch)
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	payloadBytes, _ := json.Marshal(msg.Payload)

	switch msg.Type {
	case "station/status":
		var status protocol.StationStatus
		if err := json.Unmarshal(payloadBytes, &status); err != nil {
			log.Printf("Failed to parse station/status: %v", err)
			return
		}
		select {
		case c.Status <- status:
		case <-c.ctx.Done():
		default:
			// Status is advisory; drop rather than stall the reader
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// StationName returns the connected station's advertised name
func (c *Client) StationName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stationName
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}
