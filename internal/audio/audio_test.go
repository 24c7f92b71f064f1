package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, sampleRate, channels int, data []int) string {
	t.Helper()
	return writeEncodedWAV(t, sampleRate, 16, channels, pcmFormat, data)
}

func writeEncodedWAV(t *testing.T, sampleRate, bitDepth, channels, format int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, format)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestLoadMono16k(t *testing.T) {
	path := writeWAV(t, 16000, 1, []int{0, 16384, -16384, 32767})
	samples, err := NewLoader(0).Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples want %d", len(samples), len(want))
	}
	for i := range want {
		if !near(samples[i], want[i]) {
			t.Fatalf("sample %d = %f want %f", i, samples[i], want[i])
		}
	}
}

func TestLoadStereoDownmixAndResample(t *testing.T) {
	// 4 stereo frames at 32 kHz -> 4 mono samples -> 2 samples at 16 kHz
	data := []int{
		16384, 16384,
		16384, -16384,
		8192, 8192,
		0, 0,
	}
	path := writeWAV(t, 32000, 2, data)
	samples, err := NewLoader(16000).Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples want 2", len(samples))
	}
	if !near(samples[0], 0.5) {
		t.Fatalf("first sample %f want 0.5", samples[0])
	}
	if !near(samples[1], 0.25) {
		t.Fatalf("second sample %f want 0.25", samples[1])
	}
}

func TestLoadRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.wav")
	if err := os.WriteFile(path, []byte("definitely not riff data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewLoader(0).Load(path); !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("expected ErrInvalidWAV, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(0).Load(filepath.Join(t.TempDir(), "nope.wav"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestDownmix(t *testing.T) {
	out := downmix([]float32{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float32{0.5, 0.5, 0}
	for i := range want {
		if !near(out[i], want[i]) {
			t.Fatalf("downmix[%d]=%f want %f", i, out[i], want[i])
		}
	}
}

func TestResampleLinearLength(t *testing.T) {
	in := []float32{0, 1, 2, 3}
	out := resampleLinear(in, 16000, 8000)
	if len(out) != 2 {
		t.Fatalf("downsample length got %d", len(out))
	}
	out = resampleLinear(in, 8000, 16000)
	if len(out) != 8 {
		t.Fatalf("upsample length got %d", len(out))
	}
}

func TestResampleLinearEnds(t *testing.T) {
	in := []float32{0, 10}
	out := resampleLinear(in, 1000, 2000)
	if out[0] != 0 || out[len(out)-1] != 10 {
		t.Fatalf("endpoints not preserved: %v", out)
	}
}

func TestLoadRejectsFloatWAV(t *testing.T) {
	path := writeEncodedWAV(t, 16000, 32, 1, floatFormat, []int{1, 2, 3, 4})
	if _, err := NewLoader(16000).Load(path); !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("expected ErrInvalidWAV for IEEE float data, got %v", err)
	}
}
