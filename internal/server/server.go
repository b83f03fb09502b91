// ABOUTME: Simulated ground station server
// ABOUTME: Streams per-VFO test tones over the GroundLink wire protocol
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/GroundLink-Project/groundlink-go/internal/audio"
	"github.com/GroundLink-Project/groundlink-go/internal/discovery"
	"github.com/GroundLink-Project/groundlink-go/internal/protocol"
	"github.com/gorilla/websocket"
)

const (
	// ChunkMs is the duration of each streamed audio frame
	ChunkMs = 40

	statusEvery = 1 * time.Second
)

// Config holds simulator configuration
type Config struct {
	Port       int
	Name       string
	VFOCount   int
	SampleRate int
	EnableMDNS bool
}

// Server is a simulated ground station
type Server struct {
	config   Config
	upgrader websocket.Upgrader

	httpServer *http.Server

	clients   map[*websocket.Conn]*sync.Mutex
	clientsMu sync.Mutex

	tones []*ToneSource

	mdnsManager *discovery.Manager

	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a simulator
func New(config Config) *Server {
	if config.VFOCount < 1 {
		config.VFOCount = 1
	} else if config.VFOCount > audio.MaxVFO {
		config.VFOCount = audio.MaxVFO
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 48000
	}

	tones := make([]*ToneSource, config.VFOCount+1)
	for n := 1; n <= config.VFOCount; n++ {
		tones[n] = NewToneSource(n, config.SampleRate)
	}

	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[*websocket.Conn]*sync.Mutex),
		tones:    tones,
		stopChan: make(chan struct{}),
	}
}

// Start starts the simulator. Blocks until the HTTP server exits.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/groundlink", s.handleConnection)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: mux,
	}

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		}
	}

	go s.streamLoop()
	go s.statusLoop()

	log.Printf("Station simulator %q listening on :%d (%d VFOs, %dHz)",
		s.config.Name, s.config.Port, s.config.VFOCount, s.config.SampleRate)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// handleConnection upgrades a client and performs the handshake
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade failed: %v", err)
		return
	}

	if err := s.handshake(conn); err != nil {
		log.Printf("Handshake failed: %v", err)
		conn.Close()
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = &sync.Mutex{}
	s.clientsMu.Unlock()

	log.Printf("Client connected: %s", conn.RemoteAddr())

	// Reader exists only to observe disconnects
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.dropClient(conn)
				return
			}
		}
	}()
}

// handshake reads client/hello and answers station/hello
func (s *Server) handshake(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read client/hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse client/hello: %w", err)
	}
	if msg.Type != "client/hello" {
		return fmt.Errorf("expected client/hello, got %s", msg.Type)
	}

	hello := protocol.Message{
		Type: "station/hello",
		Payload: protocol.StationHello{
			Name:     s.config.Name,
			Version:  protocol.ProtocolVersion,
			VFOCount: s.config.VFOCount,
		},
	}

	return conn.WriteJSON(hello)
}

// streamLoop generates and broadcasts audio frames in real time
func (s *Server) streamLoop() {
	ticker := time.NewTicker(ChunkMs * time.Millisecond)
	defer ticker.Stop()

	chunkFrames := s.config.SampleRate * ChunkMs / 1000

	for {
		select {
		case <-s.stopChan:
			return

		case <-ticker.C:
			for n := 1; n <= s.config.VFOCount; n++ {
				samples := make([]float32, chunkFrames)
				s.tones[n].Fill(samples)

				frame, err := protocol.EncodeAudioFrame(audio.SampleBatch{
					VFO:        n,
					SampleRate: s.config.SampleRate,
					Channels:   1,
					Samples:    samples,
				})
				if err != nil {
					log.Printf("Frame encoding failed for VFO %d: %v", n, err)
					continue
				}

				s.broadcast(websocket.BinaryMessage, frame)
			}
		}
	}
}

// statusLoop broadcasts a synthetic tracking status
func (s *Server) statusLoop() {
	ticker := time.NewTicker(statusEvery)
	defer ticker.Stop()

	start := time.Now()

	for {
		select {
		case <-s.stopChan:
			return

		case <-ticker.C:
			// A slow synthetic pass: azimuth sweeps, elevation arcs
			elapsed := time.Since(start).Seconds()
			status := protocol.Message{
				Type: "station/status",
				Payload: protocol.StationStatus{
					Satellite:    "SIM-SAT 1",
					AzimuthDeg:   math.Mod(elapsed*2.0, 360.0),
					ElevationDeg: 45.0 * math.Sin(elapsed/60.0*math.Pi),
					Tracking:     true,
				},
			}

			data, err := json.Marshal(status)
			if err != nil {
				continue
			}
			s.broadcast(websocket.TextMessage, data)
		}
	}
}

// broadcast sends a message to every connected client
func (s *Server) broadcast(messageType int, data []byte) {
	s.clientsMu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(s.clients))
	for conn, mu := range s.clients {
		conns[conn] = mu
	}
	s.clientsMu.Unlock()

	for conn, mu := range conns {
		mu.Lock()
		err := conn.WriteMessage(messageType, data)
		mu.Unlock()

		if err != nil {
			s.dropClient(conn)
		}
	}
}

// dropClient removes a disconnected client
func (s *Server) dropClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		log.Printf("Client disconnected: %s", conn.RemoteAddr())
	}
	s.clientsMu.Unlock()

	conn.Close()
}

// Stop shuts the simulator down
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)

		if s.mdnsManager != nil {
			s.mdnsManager.Stop()
		}

		s.clientsMu.Lock()
		for conn := range s.clients {
			conn.Close()
		}
		s.clients = make(map[*websocket.Conn]*sync.Mutex)
		s.clientsMu.Unlock()

		if s.httpServer != nil {
			s.httpServer.Close()
		}
	})
}
