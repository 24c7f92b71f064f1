// Package audio decodes WAV files into mono float32 samples at a fixed rate.
package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DefaultSampleRate is the rate whisper models expect.
const DefaultSampleRate = 16000

var ErrInvalidWAV = errors.New("not a valid PCM WAV file")

// WAV format tags from the fmt chunk.
const (
	pcmFormat   = 1
	floatFormat = 3
)

// Loader reads audio files and converts them to mono at SampleRate.
type Loader struct {
	SampleRate int
}

// NewLoader returns a Loader targeting sampleRate (DefaultSampleRate when <= 0).
func NewLoader(sampleRate int) *Loader {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Loader{SampleRate: sampleRate}
}

// Load decodes path, downmixes to mono and resamples.
func (l *Loader) Load(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	// go-audio decodes every sample as an integer
	if dec.WavAudioFormat == floatFormat {
		return nil, fmt.Errorf("%s: IEEE float samples: %w", path, ErrInvalidWAV)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	channels := int(dec.NumChans)
	rate := int(dec.SampleRate)
	if channels < 1 || rate < 1 {
		return nil, fmt.Errorf("%s: bad format (channels=%d rate=%d)", path, channels, rate)
	}
	bitDepth := int(dec.BitDepth)
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	samples := scaleInts(buf, bitDepth)
	mono := downmix(samples, channels)
	return resampleLinear(mono, rate, l.SampleRate), nil
}

// scaleInts maps PCM integers to [-1, 1).
func scaleInts(buf *goaudio.IntBuffer, bitDepth int) []float32 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	full := float32(int64(1) << (bitDepth - 1))
	// 8-bit WAV is unsigned
	var offset float32
	if bitDepth == 8 {
		offset = full
	}
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = (float32(v) - offset) / full
	}
	return out
}

// downmix averages interleaved channels into one.
func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += in[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

func resampleLinear(in []float32, srcSR, dstSR int) []float32 {
	if srcSR == dstSR || len(in) == 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	ratio := float64(dstSR) / float64(srcSR)
	outLen := int(float64(len(in))*ratio + 0.9999)
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}
	return out
}
