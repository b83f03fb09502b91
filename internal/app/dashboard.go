// ABOUTME: Main dashboard application orchestration
// ABOUTME: Coordinates discovery, station connection, audio engine, and UI
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/GroundLink-Project/groundlink-go/internal/client"
	"github.com/GroundLink-Project/groundlink-go/internal/discovery"
	"github.com/GroundLink-Project/groundlink-go/internal/player"
	"github.com/GroundLink-Project/groundlink-go/internal/protocol"
	"github.com/GroundLink-Project/groundlink-go/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// Config holds dashboard configuration
type Config struct {
	ServerAddr     string
	Port           int
	Name           string
	BatchMs        int
	MaxBufferAhead float64
	SampleRate     int
	UseTUI         bool
}

// tuiProgram is the subset of tea.Program the dashboard drives
type tuiProgram interface {
	Run() (tea.Model, error)
	Send(msg tea.Msg)
	Quit()
}

// Dashboard is the main application
type Dashboard struct {
	config    Config
	engine    *player.Engine
	client    *client.Client
	discovery *discovery.Manager
	controls  *ui.Controls
	tuiProg   tuiProgram

	statusMu   sync.Mutex
	lastStatus protocol.StationStatus

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new dashboard
func New(config Config) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dashboard{
		config: config,
		engine: player.New(player.Config{
			BatchMs:        config.BatchMs,
			SampleRate:     config.SampleRate,
			MaxBufferAhead: config.MaxBufferAhead,
		}),
		controls: ui.NewControls(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the dashboard and blocks until stopped
func (d *Dashboard) Start() error {
	// Audio first: a missing output device should fail before we touch
	// the network or the terminal.
	if err := d.engine.Initialize(d.ctx); err != nil {
		return fmt.Errorf("audio initialization failed: %w", err)
	}

	if d.config.UseTUI {
		tuiProg, err := ui.Run(d.controls)
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		d.tuiProg = tuiProg
		go d.runTUI()
	}

	go d.handleControls()
	go d.statusLoop()

	if d.config.ServerAddr == "" {
		d.discovery = discovery.NewManager(discovery.Config{
			ServiceName: d.config.Name,
			Port:        d.config.Port,
		})
		d.discovery.Browse()
		go d.handleDiscovery()
	} else {
		if err := d.connect(d.config.ServerAddr); err != nil {
			return fmt.Errorf("connection failed: %w", err)
		}
	}

	<-d.ctx.Done()

	return nil
}

// runTUI blocks on the TUI event loop and shuts the app down when it
// exits. A startup failure (no TTY) must not leave a headless dashboard
// running with its logs in a file nobody is watching.
func (d *Dashboard) runTUI() {
	if _, err := d.tuiProg.Run(); err != nil {
		log.Printf("TUI failed: %v", err)
	}
	d.cancel()
}

// handleDiscovery waits for station discovery
func (d *Dashboard) handleDiscovery() {
	for {
		select {
		case station := <-d.discovery.Stations():
			addr := fmt.Sprintf("%s:%d", station.Host, station.Port)
			log.Printf("Attempting connection to %s", addr)

			if err := d.connect(addr); err != nil {
				log.Printf("Connection failed: %v", err)
				continue
			}
			return

		case <-d.ctx.Done():
			return
		}
	}
}

// connect establishes the station connection
func (d *Dashboard) connect(serverAddr string) error {
	d.client = client.NewClient(client.Config{
		ServerAddr: serverAddr,
		ClientID:   uuid.New().String(),
		Name:       d.config.Name,
	}, d.engine)

	if err := d.client.Connect(); err != nil {
		return err
	}

	log.Printf("Connected to station: %s", serverAddr)

	go d.handleStationStatus()

	return nil
}

// handleStationStatus records tracking updates for the UI
func (d *Dashboard) handleStationStatus() {
	for {
		select {
		case status := <-d.client.Status:
			d.recordStatus(status)

		case <-d.ctx.Done():
			return
		}
	}
}

// recordStatus stores the latest tracking update. Written by the status
// reader goroutine, read by statusLoop.
func (d *Dashboard) recordStatus(status protocol.StationStatus) {
	d.statusMu.Lock()
	d.lastStatus = status
	d.statusMu.Unlock()
}

// statusSnapshot returns the most recent tracking update
func (d *Dashboard) statusSnapshot() protocol.StationStatus {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	return d.lastStatus
}

// handleControls processes UI commands
func (d *Dashboard) handleControls() {
	for {
		select {
		case cmd := <-d.controls.Commands:
			d.applyCommand(cmd)

		case <-d.ctx.Done():
			return
		}
	}
}

// applyCommand translates one UI command into engine calls
func (d *Dashboard) applyCommand(cmd ui.Command) {
	switch {
	case cmd.Quit:
		d.cancel()

	case cmd.ToggleMuteVFO != 0:
		muted := d.engine.State().Mutes[cmd.ToggleMuteVFO]
		d.engine.SetVFOMute(cmd.ToggleMuteVFO, !muted)

	case cmd.MasterDelta != 0:
		d.engine.SetMasterVolume(d.engine.State().MasterVolume + cmd.MasterDelta)

	case cmd.FlushAll:
		d.engine.Flush(player.AllVFOs)
	}
}

// statusLoop pushes engine snapshots to the TUI
func (d *Dashboard) statusLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if d.tuiProg == nil {
				continue
			}

			s := d.engine.State()
			msg := ui.StatusMsg{
				MasterVolume:  s.MasterVolume,
				Mutes:         s.Mutes,
				Volumes:       s.Volumes,
				Levels:        s.Levels,
				BufferedAhead: s.BufferedAhead,
				Received:      s.Stats.Received,
				Scheduled:     s.Stats.Scheduled,
				Dropped:       s.Stats.Dropped,
				Flushed:       s.Stats.Flushed,
			}

			if d.client != nil && d.client.IsConnected() {
				last := d.statusSnapshot()
				msg.Connected = true
				msg.StationName = d.client.StationName()
				msg.Satellite = last.Satellite
				msg.AzimuthDeg = last.AzimuthDeg
				msg.ElevationDeg = last.ElevationDeg
				msg.Tracking = last.Tracking
			}

			d.tuiProg.Send(msg)

		case <-d.ctx.Done():
			return
		}
	}
}

// Stop stops the dashboard
func (d *Dashboard) Stop() {
	d.cancel()

	if d.client != nil {
		d.client.Close()
	}
	if d.discovery != nil {
		d.discovery.Stop()
	}

	d.engine.Stop()

	if d.tuiProg != nil {
		d.tuiProg.Quit()
	}
}
