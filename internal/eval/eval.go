// Package eval runs the sequential evaluation loop: load audio, transcribe,
// normalize both sides and score the collected pairs.
package eval

import (
	"context"
	"fmt"
	"io"

	"asreval/internal/manifest"
	"asreval/internal/textnorm"
	"asreval/internal/wer"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// AudioLoader decodes an audio file into mono samples.
type AudioLoader interface {
	Load(path string) ([]float32, error)
}

// Transcriber converts samples to text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// Pair is one scored utterance. Reference and Hypothesis are normalized.
type Pair struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	Hypothesis    string `json:"hypothesis"`
	RawHypothesis string `json:"raw_hypothesis"`
}

// Failure records an utterance whose audio could not be loaded.
type Failure struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Result is the outcome of one run. Score is nil when no pairs were collected.
type Result struct {
	RunID    string     `json:"run_id"`
	Pairs    []Pair     `json:"pairs"`
	Missing  []string   `json:"missing_transcripts"`
	Failures []Failure  `json:"audio_failures"`
	Score    *wer.Score `json:"score"`
}

// References returns normalized references in pair order.
func (r *Result) References() []string {
	out := make([]string, len(r.Pairs))
	for i, p := range r.Pairs {
		out[i] = p.Reference
	}
	return out
}

// Hypotheses returns normalized hypotheses in pair order.
func (r *Result) Hypotheses() []string {
	out := make([]string, len(r.Pairs))
	for i, p := range r.Pairs {
		out[i] = p.Hypothesis
	}
	return out
}

// Empty reports whether no pairs were collected.
func (r *Result) Empty() bool { return len(r.Pairs) == 0 }

// Evaluator wires the loop's collaborators.
type Evaluator struct {
	Audio      AudioLoader
	Model      Transcriber
	SampleRate int
	Logger     logrus.FieldLogger
	RunID      string
	Progress   io.Writer // nil disables the progress bar
}

// Run processes data one utterance at a time in wav.scp order.
func (e *Evaluator) Run(ctx context.Context, data *manifest.DataDir) (*Result, error) {
	utts, missing := data.Utterances()
	res := &Result{
		RunID:   e.RunID,
		Pairs:   make([]Pair, 0, len(utts)),
		Missing: missing,
	}
	for _, id := range missing {
		e.Logger.Warnf("missing transcript for %s, skipping", id)
	}

	var bar *progressbar.ProgressBar
	if e.Progress != nil && len(utts) > 0 {
		bar = progressbar.NewOptions(len(utts),
			progressbar.OptionSetWriter(e.Progress),
			progressbar.OptionSetDescription("Processing files"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(e.Progress) }),
		)
	}

	for _, u := range utts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pair, ok, err := e.process(ctx, u, res)
		if err != nil {
			return nil, err
		}
		if ok {
			res.Pairs = append(res.Pairs, pair)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if res.Empty() {
		return res, nil
	}
	score, err := wer.Corpus(res.References(), res.Hypotheses())
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	res.Score = &score
	return res, nil
}

func (e *Evaluator) process(ctx context.Context, u manifest.Utterance, res *Result) (Pair, bool, error) {
	samples, err := e.Audio.Load(u.AudioPath)
	if err != nil {
		e.Logger.Warnf("load audio %s (%s): %v", u.ID, u.AudioPath, err)
		res.Failures = append(res.Failures, Failure{ID: u.ID, Path: u.AudioPath, Error: err.Error()})
		return Pair{}, false, nil
	}
	raw, err := e.Model.Transcribe(ctx, samples, e.SampleRate)
	if err != nil {
		return Pair{}, false, fmt.Errorf("transcribe %s: %w", u.ID, err)
	}
	pair := Pair{
		ID:            u.ID,
		Reference:     textnorm.Normalize(u.Reference),
		Hypothesis:    textnorm.Normalize(raw),
		RawHypothesis: raw,
	}
	e.Logger.WithField("utt", u.ID).Debugf("hyp=%q ref=%q", pair.Hypothesis, pair.Reference)
	return pair, true, nil
}
