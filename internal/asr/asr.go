package asr

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrNotBuilt is returned by New in builds without the whisper tag.
var ErrNotBuilt = errors.New("whisper support not compiled in; rebuild with -tags whisper")

// Transcriber turns a mono waveform into text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
	Close() error
}

// Options configures model loading.
type Options struct {
	ModelPath string
	Language  string
	Device    Device
	Threads   int // 0 = runtime.NumCPU()
}

// Available reports whether this build can run inference.
func Available() bool { return whisperBuilt }

// New loads the whisper.cpp model at opts.ModelPath.
func New(opts Options, logger logrus.FieldLogger) (Transcriber, error) {
	return newWhisperTranscriber(opts, logger)
}
