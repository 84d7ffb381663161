package voiceclient

import (
	"sync"

	"github.com/voxstudio/voxrelay/internal/audio"
)

// Speaker renders mono float32 samples at the playback rate. Play blocks for
// roughly the buffer's duration; Close releases the device.
type Speaker interface {
	Play(samples []float32) error
	Close() error
}

// Playback drains arriving PCM buffers through a single consumer in tag
// order. Tags are assigned by the receiver in arrival order; the queue, not
// the transport, owns ordering. "Speaking" is derived: true exactly while a
// buffer is queued or playing.
type Playback struct {
	speaker Speaker

	mu      sync.Mutex
	cond    *sync.Cond
	pending map[uint64][]byte
	next    uint64
	resync  bool
	playing bool
	stopped bool
	done    chan struct{}
}

func NewPlayback(speaker Speaker) *Playback {
	p := &Playback{
		speaker: speaker,
		pending: make(map[uint64][]byte),
		done:    make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	go p.run()
	return p
}

// Enqueue hands one PCM16 buffer to the queue. Buffers may arrive in any
// order; playback happens strictly by tag. Enqueue after Stop is a no-op.
func (p *Playback) Enqueue(tag uint64, pcm []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if p.resync {
		p.next = tag
		p.resync = false
	}
	if tag < p.next {
		return
	}
	p.pending[tag] = pcm
	p.cond.Broadcast()
}

// Flush drops everything queued without touching the device. The consumer
// resumes at whatever tag arrives next; used when the user interrupts the
// assistant mid-turn.
func (p *Playback) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.pending = make(map[uint64][]byte)
	p.resync = true
	p.cond.Broadcast()
}

// Speaking reports whether audio is queued or audible right now.
func (p *Playback) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) > 0 || p.playing
}

// Stop flushes everything queued and releases the audio device. Idempotent;
// no buffer starts playing after Stop returns.
func (p *Playback) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.pending = make(map[uint64][]byte)
	p.cond.Broadcast()
	p.mu.Unlock()

	<-p.done
	return p.speaker.Close()
}

func (p *Playback) run() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for !p.stopped {
			if _, ok := p.pending[p.next]; ok {
				break
			}
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		pcm := p.pending[p.next]
		delete(p.pending, p.next)
		p.next++
		p.playing = true
		p.mu.Unlock()

		err := p.speaker.Play(audio.PCM16ToFloat32(pcm))

		p.mu.Lock()
		p.playing = false
		if err != nil {
			p.stopped = true
			p.pending = make(map[uint64][]byte)
		}
		p.mu.Unlock()
		if err != nil {
			return
		}
	}
}
