package voiceclient

import (
	"sync"
	"testing"
	"time"

	"github.com/voxstudio/voxrelay/internal/audio"
)

type fakeSpeaker struct {
	mu     sync.Mutex
	played [][]float32
	closed bool
	delay  time.Duration
}

func (s *fakeSpeaker) Play(samples []float32) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, append([]float32(nil), samples...))
	return nil
}

func (s *fakeSpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSpeaker) playedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

// pcmFor builds a one-sample PCM16 buffer whose value identifies the buffer.
func pcmFor(v int16) []byte {
	return []byte{byte(uint16(v)), byte(uint16(v) >> 8)}
}

func TestPlaybackOrdersByTag(t *testing.T) {
	speaker := &fakeSpeaker{}
	p := NewPlayback(speaker)

	// Network order: 2, 0, 3, 1. Tag order must win.
	p.Enqueue(2, pcmFor(2))
	p.Enqueue(0, pcmFor(0))
	p.Enqueue(3, pcmFor(3))
	p.Enqueue(1, pcmFor(1))

	waitUntil(t, func() bool { return speaker.playedCount() == 4 })

	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	for i, samples := range speaker.played {
		if len(samples) != 1 {
			t.Fatalf("buffer %d has %d samples, want 1", i, len(samples))
		}
		want := audio.PCM16ToFloat32(pcmFor(int16(i)))[0]
		if samples[0] != want {
			t.Fatalf("buffer %d sample = %v, want %v", i, samples[0], want)
		}
	}
}

func TestSpeakingIsDerived(t *testing.T) {
	speaker := &fakeSpeaker{delay: 20 * time.Millisecond}
	p := NewPlayback(speaker)
	defer p.Stop()

	if p.Speaking() {
		t.Fatalf("Speaking() = true on empty queue")
	}

	p.Enqueue(0, pcmFor(1))
	if !p.Speaking() {
		t.Fatalf("Speaking() = false right after enqueue")
	}

	waitUntil(t, func() bool { return !p.Speaking() })
	if speaker.playedCount() != 1 {
		t.Fatalf("played %d buffers, want 1", speaker.playedCount())
	}
}

func TestFlushDropsQueuedAndResyncs(t *testing.T) {
	speaker := &fakeSpeaker{}
	p := NewPlayback(speaker)
	defer p.Stop()

	p.Enqueue(0, pcmFor(0))
	waitUntil(t, func() bool { return speaker.playedCount() == 1 })

	// Queue two buffers, then flush them before they can play: tag 1 never
	// arrives, so the consumer is stalled on the gap.
	p.Enqueue(2, pcmFor(2))
	p.Enqueue(3, pcmFor(3))
	p.Flush()

	if p.Speaking() {
		t.Fatalf("Speaking() = true after Flush()")
	}

	// Playback resumes at the next tag the receiver assigns, even though it
	// skips past the flushed range.
	p.Enqueue(7, pcmFor(7))
	waitUntil(t, func() bool { return speaker.playedCount() == 2 })

	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	want := audio.PCM16ToFloat32(pcmFor(7))[0]
	if got := speaker.played[1][0]; got != want {
		t.Fatalf("post-flush sample = %v, want %v", got, want)
	}
}

func TestStopFlushesAndClosesDevice(t *testing.T) {
	speaker := &fakeSpeaker{delay: 10 * time.Millisecond}
	p := NewPlayback(speaker)

	p.Enqueue(0, pcmFor(1))
	// Tag 1 is missing, so these can never start playing.
	p.Enqueue(2, pcmFor(3))
	p.Enqueue(3, pcmFor(4))

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}

	speaker.mu.Lock()
	closed := speaker.closed
	speaker.mu.Unlock()
	if !closed {
		t.Fatalf("Stop() did not close the device")
	}
	if p.Speaking() {
		t.Fatalf("Speaking() = true after Stop()")
	}

	// Nothing enqueued after Stop plays.
	p.Enqueue(1, pcmFor(2))
	time.Sleep(20 * time.Millisecond)
	if n := speaker.playedCount(); n > 1 {
		t.Fatalf("played %d buffers after Stop, want at most 1", n)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached before deadline")
}
