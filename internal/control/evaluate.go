package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"asreval/internal/asr"
	"asreval/internal/audio"
	"asreval/internal/config"
	"asreval/internal/eval"
	"asreval/internal/hook"
	"asreval/internal/manifest"
	"asreval/internal/models"
	"asreval/internal/report"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Swapped out in tests.
var (
	newTranscriber       = asr.New
	newFetcher           = models.NewFetcher
	transcriberAvailable = asr.Available
)

// Streams groups the writers a run prints to.
type Streams struct {
	Out io.Writer // report and progress lines
	Err io.Writer // progress bar, and progress lines in json mode
}

// RunEvaluation loads the data directory, runs the model over every
// utterance and prints the report. Manifest errors are returned; an empty
// manifest or a model that cannot be loaded ends the run early without error.
func RunEvaluation(ctx context.Context, cfg *config.Config, logger *logrus.Logger, streams Streams) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	device, err := asr.ParseDevice(cfg.ASR.Device)
	if err != nil {
		return err
	}
	jsonOut := strings.EqualFold(cfg.Report.Format, "json")
	say := streams.Out
	if jsonOut {
		say = streams.Err
	}
	printf := func(format string, args ...any) { _, _ = fmt.Fprintf(say, format, args...) }

	printf("--- Starting ASR Evaluation ---\n")
	printf("Loading data from: %s\n", cfg.Data.Dir)
	data, err := manifest.Load(cfg.Data.Dir)
	if err != nil {
		return err
	}
	printf("Loaded %d audio files and %d transcripts.\n", len(data.Audio), len(data.Text))
	if len(data.Audio) == 0 {
		printf("No data found. Exiting.\n")
		return nil
	}

	printf("Loading model: %s (this may take a moment...)\n", cfg.ASR.Model)
	model, err := loadModel(ctx, cfg, device, logger)
	if err != nil {
		logger.Errorf("model load: %v", err)
		printf("Error loading model: %v\n", err)
		printf("%s\n", modelGuidance(err))
		return nil
	}
	defer func() {
		if err := model.Close(); err != nil {
			logger.Warnf("close model: %v", err)
		}
	}()

	printf("Running inference on device: %s\n", device)
	runID := uuid.NewString()
	runLogger := logger.WithField("run_id", runID)
	ev := &eval.Evaluator{
		Audio:      audio.NewLoader(cfg.Audio.SampleRate),
		Model:      model,
		SampleRate: cfg.Audio.SampleRate,
		Logger:     runLogger,
		RunID:      runID,
	}
	if cfg.Eval.Progress && isTerminal(streams.Err) {
		ev.Progress = streams.Err
	}
	res, err := ev.Run(ctx, data)
	if err != nil {
		return err
	}

	if jsonOut {
		err = report.JSON(streams.Out, res)
	} else {
		err = report.Text(streams.Out, res, report.Options{
			Samples:  cfg.Report.Samples,
			Details:  cfg.Report.Details,
			Failures: cfg.Eval.ReportFailures,
		})
	}
	if err != nil {
		return err
	}

	if path := cfg.Report.HypothesisPath; path != "" {
		if err := writeHypotheses(path, res); err != nil {
			return fmt.Errorf("write hypotheses: %w", err)
		}
		runLogger.Infof("hypotheses written to %s", path)
	}

	runHook(ctx, cfg, runLogger, res)
	return nil
}

func loadModel(ctx context.Context, cfg *config.Config, device asr.Device, logger *logrus.Logger) (asr.Transcriber, error) {
	// no point fetching a model this build cannot run
	if !transcriberAvailable() {
		return nil, asr.ErrNotBuilt
	}
	path, err := newFetcher(cfg.ASR.ModelDir, logger).Resolve(ctx, cfg.ASR.Model)
	if err != nil {
		return nil, err
	}
	return newTranscriber(asr.Options{
		ModelPath: path,
		Language:  cfg.ASR.Language,
		Device:    device,
		Threads:   cfg.ASR.Threads,
	}, logger)
}

func modelGuidance(err error) string {
	switch {
	case errors.Is(err, asr.ErrNotBuilt):
		return "Please rebuild with '-tags whisper' (whisper.cpp and its headers must be installed)."
	case errors.Is(err, models.ErrUnknownModel):
		return "Please pass --model with a known model name or a path to a ggml model file."
	default:
		return "Please ensure you have an internet connection and the model file is readable."
	}
}

func writeHypotheses(path string, res *eval.Result) error {
	entries := make([]manifest.Entry, len(res.Pairs))
	for i, p := range res.Pairs {
		entries[i] = manifest.Entry{ID: p.ID, Value: p.Hypothesis}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := manifest.Write(f, entries); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runHook(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger, res *eval.Result) {
	r := hook.NewRunner(cfg, logger)
	if !r.Enabled() {
		return
	}
	s := hook.Summary{RunID: res.RunID, DataDir: cfg.Data.Dir, Pairs: len(res.Pairs)}
	if res.Score != nil {
		s.WER = res.Score.WER
		s.Scored = true
	}
	if err := r.Run(ctx, s); err != nil {
		logger.Warnf("hook: %v", err)
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
