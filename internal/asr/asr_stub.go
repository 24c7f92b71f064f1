//go:build !whisper

package asr

import "github.com/sirupsen/logrus"

const whisperBuilt = false

func newWhisperTranscriber(opts Options, logger logrus.FieldLogger) (Transcriber, error) {
	return nil, ErrNotBuilt
}
