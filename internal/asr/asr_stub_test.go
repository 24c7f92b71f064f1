//go:build !whisper

package asr

import (
	"errors"
	"testing"

	"asreval/internal/logging"
)

func TestNewWithoutWhisperTag(t *testing.T) {
	_, err := New(Options{ModelPath: "/nonexistent.bin"}, logging.NewTestLogger())
	if !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
	if Available() {
		t.Fatalf("Available() = true without the whisper tag")
	}
}
