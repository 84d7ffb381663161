// Package voiceclient implements the client half of the voice wire: microphone
// capture feeding binary frames, and tag-ordered playback of arriving audio.
package voiceclient

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/voxstudio/voxrelay/internal/audio"
)

// Source produces mono float32 sample buffers at the capture rate. Read
// follows the io.Reader contract: n > 0 may accompany io.EOF.
type Source interface {
	ReadFloat32(buf []float32) (int, error)
	Close() error
}

// Capture pulls samples from a Source, converts them to PCM16 and hands each
// buffer to emit. Muted buffers are read and discarded so the device keeps
// draining; audio already emitted is not recalled.
type Capture struct {
	source  Source
	emit    func(pcm []byte) error
	bufSize int

	mu    sync.Mutex
	muted bool
}

func NewCapture(source Source, bufSize int, emit func(pcm []byte) error) *Capture {
	if bufSize <= 0 {
		// 100ms at the capture rate.
		bufSize = audio.CaptureRate / 10
	}
	return &Capture{source: source, emit: emit, bufSize: bufSize}
}

func (c *Capture) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
}

func (c *Capture) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Run pumps the source until ctx is canceled or the source is exhausted.
func (c *Capture) Run(ctx context.Context) error {
	buf := make([]float32, c.bufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := c.source.ReadFloat32(buf)
		if n > 0 && !c.Muted() {
			if emitErr := c.emit(audio.Float32ToPCM16(buf[:n])); emitErr != nil {
				return emitErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
