// Package hook runs a user-configured command once an evaluation finishes.
package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"asreval/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Summary is the payload handed to the hook.
type Summary struct {
	RunID   string
	DataDir string
	Pairs   int
	WER     float64
	Scored  bool
}

// Text renders the one-line payload appended to the hook arguments.
func (s Summary) Text() string {
	if !s.Scored {
		return fmt.Sprintf("asreval %s: no valid pairs in %s", s.RunID, s.DataDir)
	}
	return fmt.Sprintf("asreval %s: WER %.2f%% over %d utterances in %s", s.RunID, s.WER*100, s.Pairs, s.DataDir)
}

// Runner executes the configured hook command.
type Runner struct {
	cfg    *config.Config
	logger logrus.FieldLogger
}

func NewRunner(cfg *config.Config, logger logrus.FieldLogger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// Enabled reports whether a hook command is configured.
func (r *Runner) Enabled() bool {
	return strings.TrimSpace(r.cfg.Hook.Command) != ""
}

// Run executes the hook with the summary as its last argument.
func (r *Runner) Run(ctx context.Context, s Summary) error {
	cmdStr, args, err := r.commandLine()
	if err != nil {
		return err
	}
	args = append(args, s.Text())

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.Hook.TimeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(float64(time.Second)*r.cfg.Hook.TimeoutSec))
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, cmdStr, args...)
	cmd.Env = os.Environ()
	for k, v := range r.cfg.Hook.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env,
		fmt.Sprintf("ASREVAL_RUN_ID=%s", s.RunID),
		fmt.Sprintf("ASREVAL_DATA_DIR=%s", s.DataDir),
		fmt.Sprintf("ASREVAL_PAIRS=%d", s.Pairs),
	)
	if s.Scored {
		cmd.Env = append(cmd.Env, fmt.Sprintf("ASREVAL_WER=%.6f", s.WER))
	}

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.logger.Infof("hook output: %s", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("hook failed: %w", err)
	}
	return nil
}

// commandLine splits hook.command with shell quoting rules and prepends its
// extra words to hook.args.
func (r *Runner) commandLine() (string, []string, error) {
	words, err := ParseArgs(r.cfg.Hook.Command)
	if err != nil {
		return "", nil, fmt.Errorf("parse hook.command: %w", err)
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("no hook.command configured")
	}
	args := append([]string{}, words[1:]...)
	args = append(args, r.cfg.Hook.Args...)
	return os.ExpandEnv(words[0]), args, nil
}

// ParseArgs splits raw using shell-style quoting.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	return shlex.Split(raw)
}
