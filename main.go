// ABOUTME: Entry point for the GroundLink dashboard audio client
// ABOUTME: Parses CLI flags and starts the dashboard application
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GroundLink-Project/groundlink-go/internal/app"
	"github.com/GroundLink-Project/groundlink-go/internal/version"
)

var (
	serverAddr  = flag.String("server", "", "Manual station address (skip mDNS)")
	port        = flag.Int("port", 8930, "Port for mDNS browsing")
	name        = flag.String("name", "", "Client friendly name (default: hostname-groundlink)")
	batchMs     = flag.Int("batch-ms", 40, "Audio batching granularity in milliseconds")
	maxBufferMs = flag.Int("max-buffer-ms", 2000, "Buffered-ahead ceiling before forced flush")
	sampleRate  = flag.Int("sample-rate", 48000, "Output device sample rate")
	logFile     = flag.String("log-file", "groundlink.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file, the terminal belongs to the dashboard
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	clientName := *name
	if clientName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		clientName = fmt.Sprintf("%s-groundlink", hostname)
	}

	log.Printf("%s %s starting", version.Product, version.Version)

	dashboard := app.New(app.Config{
		ServerAddr:     *serverAddr,
		Port:           *port,
		Name:           clientName,
		BatchMs:        *batchMs,
		MaxBufferAhead: float64(*maxBufferMs) / 1000.0,
		SampleRate:     *sampleRate,
		UseTUI:         useTUI,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Printf("Shutting down")
		dashboard.Stop()
	}()

	if err := dashboard.Start(); err != nil {
		log.Printf("Dashboard error: %v", err)
		dashboard.Stop()
		os.Exit(1)
	}
}
