package audio

import "encoding/binary"

// Fixed sample rates for the two directions of a voice session. The client
// microphone captures at 16 kHz; the upstream service synthesizes at 24 kHz.
// Both are mono PCM16LE end to end, so no resampling happens anywhere.
const (
	CaptureRate  = 16000
	PlaybackRate = 24000

	Channels       = 1
	BytesPerSample = 2
)

// Float32ToPCM16 converts normalized float samples ([-1, 1]) to little-endian
// signed 16-bit PCM bytes. Out-of-range samples are clipped, not wrapped.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, f := range samples {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		var s int16
		if f < 0 {
			s = int16(f * 32768)
		} else {
			s = int16(f * 32767)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// PCM16ToFloat32 converts little-endian signed 16-bit PCM bytes back to
// normalized float samples. A trailing odd byte is ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		if s < 0 {
			out[i] = float32(s) / 32768
		} else {
			out[i] = float32(s) / 32767
		}
	}
	return out
}

// DurationMS reports how many milliseconds of mono PCM16 audio the byte
// buffer holds at the given rate.
func DurationMS(pcmLen, sampleRate int) int64 {
	bytesPerSecond := int64(sampleRate * Channels * BytesPerSample)
	if bytesPerSecond <= 0 || pcmLen <= 0 {
		return 0
	}
	return int64(pcmLen) * 1000 / bytesPerSecond
}
