package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"asreval/internal/config"
	"asreval/internal/control"
	"asreval/internal/logging"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "asreval",
		Short: "Batch whisper.cpp ASR evaluation",
		Long: `asreval reads a Kaldi-style data directory (wav.scp + text), transcribes every
utterance with a local whisper.cpp model, normalizes hypothesis and reference
text (uppercase A-Z, no punctuation or digits) and reports corpus WER.

Env overrides: ASREVAL_DATA_DIR, ASREVAL_DEVICE, ASREVAL_MODEL, ASREVAL_LANGUAGE,
               ASREVAL_LOG_LEVEL/FORMAT, ASREVAL_REPORT_FAILURES`,
		Example: `  asreval --data_dir ./local_test_data --device cpu
  asreval --data_dir /data/dev-clean --model ggml-large-v3-turbo.bin --details
  asreval --json --hyp-out hyp.txt > report.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version
	root.SetVersionTemplate("asreval v{{.Version}}\n")
	root.CompletionOptions.DisableDefaultCmd = true
	applyColorHelp(root)

	flags := root.Flags()
	cfgPath := flags.StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/asreval/config.toml")
	flags.String("data_dir", config.DefaultDataDir, "Path to the data directory containing wav.scp and text files.")
	flags.String("device", config.DefaultDevice, "Device to run inference on (e.g. 'cpu', 'cuda', 'cuda:0').")
	flags.String("model", "", "Model name from the registry or path to a ggml model file")
	flags.String("language", "", "Spoken language passed to the model (e.g. en)")
	flags.Int("threads", 0, "Inference threads (0 = all cores)")
	flags.Bool("json", false, "Print the report as JSON")
	flags.Bool("details", false, "Print a per-utterance WER table")
	flags.String("hyp-out", "", "Write normalized hypotheses to this file in Kaldi text format")
	flags.Bool("report-failures", false, "List utterances skipped because their audio failed to load")
	flags.Bool("no-progress", false, "Disable the progress bar")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, cfg); err != nil {
			return err
		}
		logger, err := logging.Configure(cfg)
		if err != nil {
			return err
		}
		return control.RunEvaluation(cmd.Context(), cfg, logger, control.Streams{
			Out: cmd.OutOrStdout(),
			Err: cmd.ErrOrStderr(),
		})
	}
	return root
}

// applyFlags lets explicitly set flags win over config file and env values.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	str := func(name string, dst *string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetBool(name)
		}
	}
	str("data_dir", &cfg.Data.Dir)
	str("device", &cfg.ASR.Device)
	str("model", &cfg.ASR.Model)
	str("language", &cfg.ASR.Language)
	str("hyp-out", &cfg.Report.HypothesisPath)
	boolean("details", &cfg.Report.Details)
	boolean("report-failures", &cfg.Eval.ReportFailures)
	if err == nil && f.Changed("threads") {
		cfg.ASR.Threads, err = f.GetInt("threads")
	}
	if err == nil && f.Changed("json") {
		var on bool
		if on, err = f.GetBool("json"); on {
			cfg.Report.Format = "json"
		}
	}
	if err == nil && f.Changed("no-progress") {
		var off bool
		if off, err = f.GetBool("no-progress"); off {
			cfg.Eval.Progress = false
		}
	}
	return err
}

func applyColorHelp(root *cobra.Command) {
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		boldBlue, bold, dim, reset := "\033[1;34m", "\033[1m", "\033[2m", "\033[0m"
		if f, ok := out.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
			boldBlue, bold, dim, reset = "", "", "", ""
		}
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sasreval%s: batch ASR evaluation with whisper.cpp %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sTranscribes wav.scp, normalizes hypotheses and references, reports corpus WER.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  asreval [flags]\n\n")

		write("%sFlags%s\n", bold, reset)
		write("%s\n", cmd.LocalFlags().FlagUsages())

		write("%sEnv%s\n", bold, reset)
		writeln("  ASREVAL_DATA_DIR, ASREVAL_DEVICE, ASREVAL_MODEL, ASREVAL_LANGUAGE,")
		writeln("  ASREVAL_LOG_LEVEL=debug, ASREVAL_LOG_FORMAT=json, ASREVAL_REPORT_FAILURES=1")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln(cmd.Example)
	})
}
