// ABOUTME: Entry point for the station simulator
// ABOUTME: Streams per-VFO test tones for dashboard bring-up without hardware
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GroundLink-Project/groundlink-go/internal/server"
)

var (
	port       = flag.Int("port", 8930, "Port to listen on")
	name       = flag.String("name", "groundlink-sim", "Station name")
	vfoCount   = flag.Int("vfos", 4, "Number of simulated VFOs (1-4)")
	sampleRate = flag.Int("sample-rate", 48000, "Stream sample rate")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	sim := server.New(server.Config{
		Port:       *port,
		Name:       *name,
		VFOCount:   *vfoCount,
		SampleRate: *sampleRate,
		EnableMDNS: !*noMDNS,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Printf("Shutting down")
		sim.Stop()
	}()

	if err := sim.Start(); err != nil {
		log.Fatalf("Simulator error: %v", err)
	}
}
