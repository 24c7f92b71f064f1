// Package report renders evaluation results for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"asreval/internal/eval"
	"asreval/internal/wer"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Options controls the text report.
type Options struct {
	Samples  int  // reference/hypothesis pairs echoed before the score
	Details  bool // per-utterance table
	Failures bool // list utterances skipped for audio errors
}

// Text writes the console report.
func Text(w io.Writer, res *eval.Result, opts Options) error {
	p := &printer{w: w}
	p.line("")
	p.line("--- Evaluation Complete ---")

	if res.Empty() {
		p.line("No valid pairs to compare.")
		if opts.Failures {
			p.failures(res)
		}
		return p.err
	}

	n := opts.Samples
	if n > len(res.Pairs) {
		n = len(res.Pairs)
	}
	if n < 0 {
		n = 0
	}
	for _, pair := range res.Pairs[:n] {
		p.printf("Reference:  '%s'\n", pair.Reference)
		p.printf("Hypothesis: '%s'\n", pair.Hypothesis)
	}

	if opts.Details {
		p.line("")
		p.line(detailsTable(res.Pairs))
	}

	s := res.Score
	p.printf("\nFinal Word Error Rate (WER): %.2f%%\n", s.WER*100)
	p.printf("Substitutions: %d  Deletions: %d  Insertions: %d  Reference words: %d\n",
		s.Substitutions, s.Deletions, s.Insertions, s.ReferenceWords)
	p.printf("Character Error Rate (CER): %.2f%%\n", s.CER*100)
	p.printf("Utterances scored: %d  missing transcript: %d  audio failures: %d\n",
		len(res.Pairs), len(res.Missing), len(res.Failures))
	if opts.Failures {
		p.failures(res)
	}
	p.line("---------------------------------")
	return p.err
}

// JSON writes res as an indented JSON document.
func JSON(w io.Writer, res *eval.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func detailsTable(pairs []eval.Pair) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "WER", "S", "D", "I", "N", "Hypothesis"})
	for _, pair := range pairs {
		s := wer.Utterance(pair.Reference, pair.Hypothesis)
		tw.AppendRow(table.Row{
			pair.ID,
			fmt.Sprintf("%.2f%%", s.WER*100),
			s.Substitutions,
			s.Deletions,
			s.Insertions,
			s.ReferenceWords,
			pair.Hypothesis,
		})
	}
	aligns := []text.Align{text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignLeft}
	configs := make([]table.ColumnConfig, 0, len(aligns))
	for i, a := range aligns {
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       a,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) line(s string) { p.printf("%s\n", s) }

func (p *printer) failures(res *eval.Result) {
	if len(res.Failures) == 0 {
		return
	}
	p.printf("Skipped %d utterance(s) with unreadable audio:\n", len(res.Failures))
	for _, f := range res.Failures {
		p.printf("  %s  %s: %s\n", f.ID, f.Path, f.Error)
	}
}
