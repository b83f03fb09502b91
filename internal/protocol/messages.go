// ABOUTME: Wire protocol for GroundLink station/client communication
// ABOUTME: JSON control envelope plus binary per-VFO audio frame codec
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/GroundLink-Project/groundlink-go/internal/audio"
)

// ProtocolVersion is the current wire protocol version
const ProtocolVersion = 1

// AudioFrameType is the leading byte of a binary audio frame
const AudioFrameType = 0x01

// audioHeaderSize is type + vfo + channels + reserved + rate(u32)
const audioHeaderSize = 8

// Message is the JSON envelope for all text messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ClientHello is sent by the dashboard client after connecting
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// StationHello is the station's handshake response
type StationHello struct {
	Name     string `json:"name"`
	Version  int    `json:"version"`
	VFOCount int    `json:"vfo_count"`
}

// StationStatus carries periodic tracking state for the dashboard header
type StationStatus struct {
	Satellite    string  `json:"satellite,omitempty"`
	AzimuthDeg   float64 `json:"azimuth_deg"`
	ElevationDeg float64 `json:"elevation_deg"`
	Tracking     bool    `json:"tracking"`
}

// EncodeAudioFrame packs a sample batch into a binary frame:
// [type u8][vfo u8][channels u8][reserved u8][rate u32 BE][samples f32 LE...]
func EncodeAudioFrame(batch audio.SampleBatch) ([]byte, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	frame := make([]byte, audioHeaderSize+len(batch.Samples)*4)
	frame[0] = AudioFrameType
	frame[1] = byte(batch.VFO)
	frame[2] = byte(batch.Channels)
	binary.BigEndian.PutUint32(frame[4:8], uint32(batch.SampleRate))

	for i, s := range batch.Samples {
		binary.LittleEndian.PutUint32(frame[audioHeaderSize+i*4:], math.Float32bits(s))
	}

	return frame, nil
}

// DecodeAudioFrame unpacks a binary audio frame into a sample batch.
// Header fields are validated; sample values are passed through as-is.
func DecodeAudioFrame(data []byte) (audio.SampleBatch, error) {
	var batch audio.SampleBatch

	if len(data) < audioHeaderSize {
		return batch, fmt.Errorf("audio frame too short: %d bytes", len(data))
	}
	if data[0] != AudioFrameType {
		return batch, fmt.Errorf("unknown binary frame type: %d", data[0])
	}
	if (len(data)-audioHeaderSize)%4 != 0 {
		return batch, fmt.Errorf("audio frame payload not float32-aligned: %d bytes", len(data)-audioHeaderSize)
	}

	batch.VFO = int(data[1])
	batch.Channels = int(data[2])
	batch.SampleRate = int(binary.BigEndian.Uint32(data[4:8]))

	if err := batch.Validate(); err != nil {
		return audio.SampleBatch{}, err
	}

	count := (len(data) - audioHeaderSize) / 4
	batch.Samples = make([]float32, count)
	for i := 0; i < count; i++ {
		batch.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[audioHeaderSize+i*4:]))
	}

	return batch, nil
}
