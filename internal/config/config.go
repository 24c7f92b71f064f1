package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"asreval/internal/audio"
	"asreval/internal/models"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultDataDir   = "./local_test_data"
	DefaultDevice    = "cpu"
	defaultConfigDir = ".config/asreval"
	defaultCacheDir  = ".cache/asreval"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Data struct {
		Dir string `toml:"dir"` // must contain wav.scp and text
	} `toml:"data"`

	ASR struct {
		Model    string `toml:"model"` // registry name or path to a ggml file
		ModelDir string `toml:"model_dir"`
		Language string `toml:"language"`
		Device   string `toml:"device"`  // cpu, auto, metal, cuda, cuda:N
		Threads  int    `toml:"threads"` // 0 = all cores
	} `toml:"asr"`

	Audio struct {
		SampleRate int `toml:"sample_rate"`
	} `toml:"audio"`

	Eval struct {
		ReportFailures bool `toml:"report_failures"`
		Progress       bool `toml:"progress"`
	} `toml:"eval"`

	Report struct {
		Format         string `toml:"format"` // text, json
		Samples        int    `toml:"samples"`
		Details        bool   `toml:"details"`
		HypothesisPath string `toml:"hypothesis_path"`
	} `toml:"report"`

	Hook struct {
		Command    string            `toml:"command"`
		Args       []string          `toml:"args"`
		TimeoutSec float64           `toml:"timeout_sec"`
		Env        map[string]string `toml:"env"`
	} `toml:"hook"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Path   string `toml:"path"`   // optional rotated log file
	} `toml:"logging"`

	Paths struct {
		ConfigPath string `toml:"-"`
	} `toml:"paths"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.Data.Dir = DefaultDataDir

	cfg.ASR.Model = models.DefaultModel
	cfg.ASR.ModelDir = filepath.Join(home, defaultCacheDir, "models")
	cfg.ASR.Language = "en"
	cfg.ASR.Device = DefaultDevice

	cfg.Audio.SampleRate = audio.DefaultSampleRate

	cfg.Eval.Progress = true

	cfg.Report.Format = "text"
	cfg.Report.Samples = 1

	cfg.Hook.TimeoutSec = 10
	cfg.Hook.Env = map[string]string{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg, nil
}

// DefaultPath is ~/.config/asreval/config.toml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultConfigDir, "config.toml")
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultPath()
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.Dir) == "" {
		return errors.New("data.dir is empty")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive (got %d)", c.Audio.SampleRate)
	}
	if c.ASR.Threads < 0 {
		return fmt.Errorf("asr.threads must be >= 0 (got %d)", c.ASR.Threads)
	}
	if c.Report.Samples < 0 {
		return fmt.Errorf("report.samples must be >= 0 (got %d)", c.Report.Samples)
	}
	switch strings.ToLower(c.Report.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("report.format must be text or json (got %q)", c.Report.Format)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ASREVAL_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("ASREVAL_DEVICE"); v != "" {
		cfg.ASR.Device = v
	}
	if v := os.Getenv("ASREVAL_MODEL"); v != "" {
		cfg.ASR.Model = v
	}
	if v := os.Getenv("ASREVAL_LANGUAGE"); v != "" {
		cfg.ASR.Language = v
	}
	if v := os.Getenv("ASREVAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ASREVAL_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ASREVAL_REPORT_FAILURES"); v != "" {
		cfg.Eval.ReportFailures = v != "0" && strings.ToLower(v) != "false"
	}
}
