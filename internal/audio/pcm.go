package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Wire sample rates for the live dialogue: the endpoint consumes 16 kHz mono
// PCM and produces 24 kHz mono PCM.
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
	Channels         = 1
)

const pcmScale = 32768.0

// EncodeFrame converts normalized float32 samples into 16-bit signed
// little-endian PCM bytes. Samples outside [-1, 1] are clamped.
func EncodeFrame(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		scaled := float64(sample) * pcmScale
		if scaled > 32767 {
			scaled = 32767
		}
		if scaled < -32768 {
			scaled = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(scaled)))
	}
	return out
}

// DecodeChunk converts 16-bit signed little-endian PCM bytes back into
// normalized float32 samples.
func DecodeChunk(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm chunk has odd length %d", len(data))
	}
	samples := make([]float32, len(data)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(s) / pcmScale
	}
	return samples, nil
}

// Duration reports the playback duration of sampleCount mono samples at the
// given rate.
func Duration(sampleCount int, sampleRate int) time.Duration {
	if sampleRate <= 0 || sampleCount <= 0 {
		return 0
	}
	return time.Duration(float64(sampleCount) / float64(sampleRate) * float64(time.Second))
}
