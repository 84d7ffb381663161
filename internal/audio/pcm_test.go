package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestFloat32ToPCM16Clipping(t *testing.T) {
	pcm := Float32ToPCM16([]float32{0, 1, -1, 2.5, -3})
	if len(pcm) != 10 {
		t.Fatalf("len = %d, want 10", len(pcm))
	}

	want := []int16{0, 32767, -32768, 32767, -32768}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		if got != w {
			t.Fatalf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.999, -0.999}
	out := PCM16ToFloat32(Float32ToPCM16(in))
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		diff := out[i] - in[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.001 {
			t.Fatalf("sample %d = %f, want %f (±0.001)", i, out[i], in[i])
		}
	}
}

func TestPCM16ToFloat32OddTrailingByte(t *testing.T) {
	out := PCM16ToFloat32([]byte{0x00, 0x40, 0xff})
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
}

func TestDurationMS(t *testing.T) {
	// One second of capture-rate audio.
	if got := DurationMS(CaptureRate*BytesPerSample, CaptureRate); got != 1000 {
		t.Fatalf("DurationMS = %d, want 1000", got)
	}
	if got := DurationMS(0, PlaybackRate); got != 0 {
		t.Fatalf("DurationMS(0) = %d, want 0", got)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 320)
	wav, err := EncodeWAVPCM16LE(pcm, CaptureRate)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Fatalf("missing RIFF header")
	}
	if !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Fatalf("missing WAVE marker")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != CaptureRate {
		t.Fatalf("sample rate = %d, want %d", got, CaptureRate)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", got, len(pcm))
	}
}
