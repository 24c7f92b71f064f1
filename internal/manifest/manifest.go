// Package manifest reads Kaldi-style data directories: a wav.scp mapping
// utterance IDs to audio paths and a text file mapping IDs to transcripts.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	WavScpFile = "wav.scp"
	TextFile   = "text"
)

// Entry is one "<id> <value>" record.
type Entry struct {
	ID    string
	Value string
}

// Utterance pairs an audio file with its reference transcript.
type Utterance struct {
	ID        string
	AudioPath string
	Reference string
}

// Parse reads records from r. Blank lines are skipped; each line is split on
// its first whitespace run so the value may contain spaces. A repeated ID keeps
// its first position and takes the last value.
func Parse(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		index   = map[string]int{}
		lineNo  int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cut := strings.IndexFunc(line, isSpace)
		if cut < 0 {
			return nil, fmt.Errorf("line %d: expected \"<id> <value>\", got %q", lineNo, line)
		}
		id := line[:cut]
		value := strings.TrimLeftFunc(line[cut:], isSpace)
		if i, ok := index[id]; ok {
			entries[i].Value = value
			continue
		}
		index[id] = len(entries)
		entries = append(entries, Entry{ID: id, Value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadFile parses the manifest at path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Write emits entries in "<id> <value>" form, one per line.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s %s\n", e.ID, e.Value); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DataDir holds the two manifests of a data directory.
type DataDir struct {
	Dir   string
	Audio []Entry
	Text  []Entry
}

// Load reads wav.scp and text from dir.
func Load(dir string) (*DataDir, error) {
	audio, err := ReadFile(filepath.Join(dir, WavScpFile))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", WavScpFile, err)
	}
	text, err := ReadFile(filepath.Join(dir, TextFile))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", TextFile, err)
	}
	return &DataDir{Dir: dir, Audio: audio, Text: text}, nil
}

// Utterances joins the manifests in wav.scp order. IDs without a transcript
// are returned in missing.
func (d *DataDir) Utterances() (utts []Utterance, missing []string) {
	refs := make(map[string]string, len(d.Text))
	for _, e := range d.Text {
		refs[e.ID] = e.Value
	}
	for _, e := range d.Audio {
		ref, ok := refs[e.ID]
		if !ok {
			missing = append(missing, e.ID)
			continue
		}
		utts = append(utts, Utterance{ID: e.ID, AudioPath: e.Value, Reference: ref})
	}
	return utts, missing
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\v', '\f', '\r', '\n':
		return true
	}
	return false
}
