// Package wer computes word and character error rates between reference and
// hypothesis transcripts.
//
// Words are interned to runes so that golang-levenshtein's rune-based matrix
// and edit script can be reused at word granularity. Corpus rates sum edit
// operations over all pairs and divide by the total reference length; they are
// not an average of per-utterance rates.
package wer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

var (
	ErrLengthMismatch   = errors.New("reference and hypothesis counts differ")
	ErrEmptyInput       = errors.New("no transcript pairs")
	ErrNoReferenceWords = errors.New("references contain no words")
)

// unit costs, so the distance equals S + D + I
var unitCost = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Score holds error counts and rates for one pair or a whole corpus.
type Score struct {
	WER float64 `json:"wer"`
	CER float64 `json:"cer"`

	Substitutions int `json:"substitutions"`
	Deletions     int `json:"deletions"`
	Insertions    int `json:"insertions"`

	ReferenceWords  int `json:"reference_words"`
	HypothesisWords int `json:"hypothesis_words"`
	ReferenceChars  int `json:"reference_chars"`
	CharErrors      int `json:"char_errors"`

	Utterances int `json:"utterances"`
}

// WordErrors is the word-level edit distance.
func (s Score) WordErrors() int {
	return s.Substitutions + s.Deletions + s.Insertions
}

func (s Score) String() string {
	return fmt.Sprintf("WER %.2f%% (S=%d D=%d I=%d N=%d)", s.WER*100, s.Substitutions, s.Deletions, s.Insertions, s.ReferenceWords)
}

// Corpus scores index-aligned reference and hypothesis lists.
func Corpus(refs, hyps []string) (Score, error) {
	if len(refs) != len(hyps) {
		return Score{}, fmt.Errorf("%w: %d references, %d hypotheses", ErrLengthMismatch, len(refs), len(hyps))
	}
	if len(refs) == 0 {
		return Score{}, ErrEmptyInput
	}
	var total Score
	for i := range refs {
		total.add(count(refs[i], hyps[i]))
	}
	if total.ReferenceWords == 0 {
		return Score{}, ErrNoReferenceWords
	}
	total.WER = float64(total.WordErrors()) / float64(total.ReferenceWords)
	if total.ReferenceChars > 0 {
		total.CER = float64(total.CharErrors) / float64(total.ReferenceChars)
	}
	return total, nil
}

// Utterance scores a single pair. An empty reference scores 0 against an
// empty hypothesis and 1 otherwise.
func Utterance(ref, hyp string) Score {
	s := count(ref, hyp)
	s.WER = rate(s.WordErrors(), s.ReferenceWords)
	s.CER = rate(s.CharErrors, s.ReferenceChars)
	return s
}

func rate(errs, n int) float64 {
	if n == 0 {
		if errs == 0 {
			return 0
		}
		return 1
	}
	return float64(errs) / float64(n)
}

func (s *Score) add(o Score) {
	s.Substitutions += o.Substitutions
	s.Deletions += o.Deletions
	s.Insertions += o.Insertions
	s.ReferenceWords += o.ReferenceWords
	s.HypothesisWords += o.HypothesisWords
	s.ReferenceChars += o.ReferenceChars
	s.CharErrors += o.CharErrors
	s.Utterances += o.Utterances
}

func count(ref, hyp string) Score {
	refWords := strings.Fields(ref)
	hypWords := strings.Fields(hyp)
	src, dst := internWords(refWords, hypWords)

	s := Score{
		ReferenceWords:  len(refWords),
		HypothesisWords: len(hypWords),
		Utterances:      1,
	}
	matrix := levenshtein.MatrixForStrings(src, dst, unitCost)
	for _, op := range levenshtein.EditScriptForMatrix(matrix, unitCost) {
		switch op {
		case levenshtein.Sub:
			s.Substitutions++
		case levenshtein.Del:
			s.Deletions++
		case levenshtein.Ins:
			s.Insertions++
		}
	}

	refRunes := []rune(ref)
	s.ReferenceChars = len(refRunes)
	s.CharErrors = levenshtein.DistanceForStrings(refRunes, []rune(hyp), unitCost)
	return s
}

// internWords maps each distinct word to its own rune.
func internWords(ref, hyp []string) ([]rune, []rune) {
	vocab := make(map[string]rune, len(ref)+len(hyp))
	conv := func(words []string) []rune {
		out := make([]rune, len(words))
		for i, w := range words {
			r, ok := vocab[w]
			if !ok {
				r = rune(len(vocab) + 1)
				vocab[w] = r
			}
			out[i] = r
		}
		return out
	}
	return conv(ref), conv(hyp)
}
