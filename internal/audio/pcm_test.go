package audio

import (
	"testing"
	"time"
)

func TestEncodeFrameClampsAndScales(t *testing.T) {
	t.Parallel()

	got := EncodeFrame([]float32{0, 0.5, -0.5, 1.5, -1.5})
	want := []byte{
		0x00, 0x00, // 0
		0x00, 0x40, // 16384
		0x00, 0xc0, // -16384
		0xff, 0x7f, // clamped to 32767
		0x00, 0x80, // clamped to -32768
	}
	if len(got) != len(want) {
		t.Fatalf("encoded %d bytes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestDecodeChunkRoundTrip(t *testing.T) {
	t.Parallel()

	in := []float32{0, 0.25, -0.25, 0.99, -0.99}
	samples, err := DecodeChunk(EncodeFrame(in))
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if len(samples) != len(in) {
		t.Fatalf("decoded %d samples, want %d", len(samples), len(in))
	}
	for i := range in {
		diff := samples[i] - in[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > 1.0/32768.0 {
			t.Errorf("sample %d = %f, want within one LSB of %f", i, samples[i], in[i])
		}
	}
}

func TestDecodeChunkOddLength(t *testing.T) {
	t.Parallel()

	if _, err := DecodeChunk([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Fatal("expected error for odd-length chunk")
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	if d := Duration(24000, OutputSampleRate); d != time.Second {
		t.Errorf("Duration(24000, 24000) = %v, want 1s", d)
	}
	if d := Duration(8000, InputSampleRate); d != 500*time.Millisecond {
		t.Errorf("Duration(8000, 16000) = %v, want 500ms", d)
	}
	if d := Duration(0, OutputSampleRate); d != 0 {
		t.Errorf("Duration(0, _) = %v, want 0", d)
	}
}
