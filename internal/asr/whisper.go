//go:build whisper

package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/sirupsen/logrus"
)

const whisperBuilt = true

// whisperTranscriber runs offline whisper.cpp inference, one context per call.
type whisperTranscriber struct {
	opts   Options
	logger logrus.FieldLogger
	model  whisper.Model
}

func newWhisperTranscriber(opts Options, logger logrus.FieldLogger) (Transcriber, error) {
	if !opts.Device.IsCPU() {
		// whisper.cpp picks its GPU backend at build time
		logger.Infof("device %s requested; whisper.cpp uses the backend it was built with", opts.Device)
	}
	model, err := whisper.New(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if opts.Threads <= 0 {
		opts.Threads = runtime.NumCPU()
	}
	return &whisperTranscriber{opts: opts, logger: logger, model: model}, nil
}

func (t *whisperTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if sampleRate != whisper.SampleRate {
		return "", fmt.Errorf("sample rate %d unsupported (want %d)", sampleRate, whisper.SampleRate)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	wctx, err := t.model.NewContext()
	if err != nil {
		return "", err
	}
	wctx.SetThreads(uint(t.opts.Threads))
	if lang := strings.TrimSpace(t.opts.Language); lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			t.logger.Warnf("set language: %v", err)
		}
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", err
	}
	var parts []string
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (t *whisperTranscriber) Close() error {
	return t.model.Close()
}
