// ABOUTME: Tests for the wire protocol
// ABOUTME: Tests audio frame codec round trips and malformed frame rejection
package protocol

import (
	"errors"
	"testing"

	"github.com/GroundLink-Project/groundlink-go/internal/audio"
)

func TestAudioFrameRoundTrip(t *testing.T) {
	in := audio.SampleBatch{
		VFO:        3,
		SampleRate: 48000,
		Channels:   2,
		Samples:    []float32{0.1, -0.1, 0.5, -0.5, 1.0, -1.0},
	}

	frame, err := EncodeAudioFrame(in)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	out, err := DecodeAudioFrame(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if out.VFO != in.VFO || out.SampleRate != in.SampleRate || out.Channels != in.Channels {
		t.Errorf("header mismatch: %+v", out)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("expected %d samples, got %d", len(in.Samples), len(out.Samples))
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Errorf("sample %d: expected %f, got %f", i, in.Samples[i], out.Samples[i])
		}
	}
}

func TestEncodeRejectsInvalidBatch(t *testing.T) {
	_, err := EncodeAudioFrame(audio.SampleBatch{VFO: 9, SampleRate: 48000, Channels: 1})
	if !errors.Is(err, audio.ErrBadVFO) {
		t.Errorf("expected ErrBadVFO, got %v", err)
	}
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	valid, err := EncodeAudioFrame(audio.SampleBatch{
		VFO: 1, SampleRate: 48000, Channels: 1, Samples: []float32{0.1, 0.2},
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", valid[:4]},
		{"wrong type", append([]byte{0x7f}, valid[1:]...)},
		{"truncated samples", valid[:len(valid)-2]},
		{"bad vfo", func() []byte {
			f := append([]byte(nil), valid...)
			f[1] = 200
			return f
		}()},
		{"bad channels", func() []byte {
			f := append([]byte(nil), valid...)
			f[2] = 5
			return f
		}()},
		{"zero rate", func() []byte {
			f := append([]byte(nil), valid...)
			f[4], f[5], f[6], f[7] = 0, 0, 0, 0
			return f
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeAudioFrame(tt.data); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	frame, err := EncodeAudioFrame(audio.SampleBatch{VFO: 2, SampleRate: 8000, Channels: 1, Samples: []float32{}})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	out, err := DecodeAudioFrame(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out.Samples) != 0 {
		t.Errorf("expected empty samples, got %d", len(out.Samples))
	}
}
