// ABOUTME: Version and product identity constants
// ABOUTME: Reported in the station handshake
package version

const (
	Product = "GroundLink Dashboard"
	Version = "0.1.0"
)
