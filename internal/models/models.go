// Package models resolves pretrained whisper.cpp model names to local files,
// downloading them from a registry on first use.
package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultModel is the ggml export of distil-whisper/distil-large-v2.
const DefaultModel = "ggml-distil-large-v2.bin"

var ErrUnknownModel = errors.New("unknown model")

// Registry maps model file names to download URLs.
var Registry = map[string]string{
	DefaultModel:                   "https://huggingface.co/distil-whisper/distil-large-v2/resolve/main/ggml-large-32-2.en.bin",
	"ggml-base.en.bin":             "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin",
	"ggml-small-q5_1.bin":          "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small-q5_1.bin",
	"ggml-medium-q5_1.bin":         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium-q5_1.bin",
	"ggml-large-v3-q5_0.bin":       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-q5_0.bin",
	"ggml-large-v3-turbo-q8_0.bin": "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo-q8_0.bin",
	"ggml-large-v3-turbo.bin":      "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin",
}

// Fetcher locates models in Dir and downloads missing ones.
type Fetcher struct {
	Dir      string
	Registry map[string]string
	Client   *http.Client
	Logger   logrus.FieldLogger
}

// NewFetcher returns a Fetcher over the default registry.
func NewFetcher(dir string, logger logrus.FieldLogger) *Fetcher {
	return &Fetcher{
		Dir:      dir,
		Registry: Registry,
		Client:   http.DefaultClient,
		Logger:   logger,
	}
}

// Names lists registry entries in sorted order.
func (f *Fetcher) Names() []string {
	names := make([]string, 0, len(f.Registry))
	for n := range f.Registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns a local path for name. Explicit paths are used as is; bare
// names are looked up in Dir and downloaded from the registry when absent.
func (f *Fetcher) Resolve(ctx context.Context, name string) (string, error) {
	name = os.ExpandEnv(strings.TrimSpace(name))
	if name == "" {
		name = DefaultModel
	}
	if strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("model file: %w", err)
		}
		return name, nil
	}
	dest := filepath.Join(f.Dir, name)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	url, ok := f.Registry[name]
	if !ok {
		return "", fmt.Errorf("%w %q; known models: %s", ErrUnknownModel, name, strings.Join(f.Names(), ", "))
	}
	if err := f.download(ctx, url, dest); err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	return dest, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if f.Logger != nil {
		f.Logger.Infof("downloading %s -> %s", url, dest)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
