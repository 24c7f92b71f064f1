package eval

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"asreval/internal/logging"
	"asreval/internal/manifest"
)

// fakeAudio returns a single sample holding the clip's index.
type fakeAudio struct {
	clips map[string]int
	fails map[string]error
	calls []string
}

func (f *fakeAudio) Load(path string) ([]float32, error) {
	f.calls = append(f.calls, path)
	if err, ok := f.fails[path]; ok {
		return nil, err
	}
	idx, ok := f.clips[path]
	if !ok {
		return nil, errors.New("no such clip")
	}
	return []float32{float32(idx)}, nil
}

type fakeModel struct {
	texts []string
	err   error
	rates []int
}

func (m *fakeModel) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	m.rates = append(m.rates, sampleRate)
	if m.err != nil {
		return "", m.err
	}
	return m.texts[int(samples[0])], nil
}

func newEvaluator(a *fakeAudio, m *fakeModel) *Evaluator {
	return &Evaluator{
		Audio:      a,
		Model:      m,
		SampleRate: 16000,
		Logger:     logging.NewTestLogger(),
		RunID:      "run-1",
	}
}

func dataDir(audio, text []manifest.Entry) *manifest.DataDir {
	return &manifest.DataDir{Dir: "mem", Audio: audio, Text: text}
}

func TestRunAlignsIntersection(t *testing.T) {
	data := dataDir(
		[]manifest.Entry{{ID: "u2", Value: "/a/2.wav"}, {ID: "u1", Value: "/a/1.wav"}, {ID: "u4", Value: "/a/4.wav"}, {ID: "u3", Value: "/a/3.wav"}},
		[]manifest.Entry{{ID: "u1", Value: "The cat sat."}, {ID: "u2", Value: "Hello, world!"}, {ID: "u9", Value: "unused"}},
	)
	audio := &fakeAudio{clips: map[string]int{"/a/1.wav": 0, "/a/2.wav": 1, "/a/3.wav": 0, "/a/4.wav": 0}}
	model := &fakeModel{texts: []string{"the cat sat", "hello word"}}

	res, err := newEvaluator(audio, model).Run(context.Background(), data)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(res.Pairs))
	}
	if res.Pairs[0].ID != "u2" || res.Pairs[1].ID != "u1" {
		t.Fatalf("pairs out of wav.scp order: %+v", res.Pairs)
	}
	refs, hyps := res.References(), res.Hypotheses()
	if refs[0] != "HELLO WORLD" || hyps[0] != "HELLO WORD" {
		t.Fatalf("pair 0 = %q / %q", refs[0], hyps[0])
	}
	if refs[1] != "THE CAT SAT" || hyps[1] != "THE CAT SAT" {
		t.Fatalf("pair 1 = %q / %q", refs[1], hyps[1])
	}
	if strings.Join(res.Missing, ",") != "u4,u3" {
		t.Fatalf("missing=%v", res.Missing)
	}
	if len(audio.calls) != 2 {
		t.Fatalf("audio loaded for skipped utterances: %v", audio.calls)
	}
	if res.Score == nil || math.Abs(res.Score.WER-0.2) > 1e-9 {
		t.Fatalf("score=%+v want WER 0.2", res.Score)
	}
	if res.RunID != "run-1" {
		t.Fatalf("run id not propagated")
	}
	for _, r := range model.rates {
		if r != 16000 {
			t.Fatalf("transcriber got sample rate %d", r)
		}
	}
}

func TestRunSkipsAudioFailures(t *testing.T) {
	data := dataDir(
		[]manifest.Entry{{ID: "u1", Value: "/a/1.wav"}, {ID: "u2", Value: "/a/broken.wav"}},
		[]manifest.Entry{{ID: "u1", Value: "one"}, {ID: "u2", Value: "two"}},
	)
	audio := &fakeAudio{
		clips: map[string]int{"/a/1.wav": 0},
		fails: map[string]error{"/a/broken.wav": errors.New("bad header")},
	}
	res, err := newEvaluator(audio, &fakeModel{texts: []string{"one"}}).Run(context.Background(), data)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Pairs) != 1 || res.Pairs[0].ID != "u1" {
		t.Fatalf("pairs=%+v", res.Pairs)
	}
	if len(res.Failures) != 1 || res.Failures[0].ID != "u2" || res.Failures[0].Error != "bad header" {
		t.Fatalf("failures=%+v", res.Failures)
	}
	if res.Score == nil || res.Score.WER != 0 {
		t.Fatalf("score=%+v", res.Score)
	}
}

func TestRunEmptyResultHasNoScore(t *testing.T) {
	data := dataDir(
		[]manifest.Entry{{ID: "u1", Value: "/a/1.wav"}},
		[]manifest.Entry{{ID: "u2", Value: "two"}},
	)
	res, err := newEvaluator(&fakeAudio{}, &fakeModel{}).Run(context.Background(), data)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Empty() || res.Score != nil {
		t.Fatalf("expected empty result without score: %+v", res)
	}
}

func TestRunTranscribeErrorIsFatal(t *testing.T) {
	data := dataDir([]manifest.Entry{{ID: "u1", Value: "/a/1.wav"}}, []manifest.Entry{{ID: "u1", Value: "one"}})
	boom := errors.New("decoder crashed")
	_, err := newEvaluator(&fakeAudio{clips: map[string]int{"/a/1.wav": 0}}, &fakeModel{err: boom}).Run(context.Background(), data)
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "u1") {
		t.Fatalf("expected wrapped transcribe error, got %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	data := dataDir([]manifest.Entry{{ID: "u1", Value: "/a/1.wav"}}, []manifest.Entry{{ID: "u1", Value: "one"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEvaluator(&fakeAudio{clips: map[string]int{"/a/1.wav": 0}}, &fakeModel{texts: []string{"one"}}).Run(ctx, data)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunDrawsProgress(t *testing.T) {
	data := dataDir([]manifest.Entry{{ID: "u1", Value: "/a/1.wav"}}, []manifest.Entry{{ID: "u1", Value: "one"}})
	var buf bytes.Buffer
	ev := newEvaluator(&fakeAudio{clips: map[string]int{"/a/1.wav": 0}}, &fakeModel{texts: []string{"one"}})
	ev.Progress = &buf
	if _, err := ev.Run(context.Background(), data); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "Processing files") {
		t.Fatalf("progress output missing description: %q", buf.String())
	}
}
