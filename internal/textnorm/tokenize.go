package textnorm

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Tokenizer splits one line of corpus text into phrase tokens for training.
type Tokenizer interface {
	Tokenize(line string) []string
}

// SpaceTokenizer splits on whitespace and trims surrounding punctuation.
// This is the right choice for any language that delimits words with spaces.
type SpaceTokenizer struct{}

// Tokenize normalizes the line and returns its non-empty tokens.
func (SpaceTokenizer) Tokenize(line string) []string {
	var tokens []string
	for _, field := range strings.FieldsFunc(Normalize(line), unicode.IsSpace) {
		token := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// SegmentTokenizer segments text without word delimiters using a
// morphological analyzer. Used for Japanese corpus imports.
type SegmentTokenizer struct {
	t *tokenizer.Tokenizer
}

// NewSegmentTokenizer builds a segmenting tokenizer over the IPA dictionary.
func NewSegmentTokenizer() (*SegmentTokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &SegmentTokenizer{t: t}, nil
}

// Tokenize returns the normalized surface forms of the segmented line.
func (s *SegmentTokenizer) Tokenize(line string) []string {
	var tokens []string
	for _, tok := range s.t.Tokenize(line) {
		surface := strings.TrimSpace(tok.Surface)
		if surface == "" {
			continue
		}
		if isPunctOnly(surface) {
			continue
		}
		tokens = append(tokens, Normalize(surface))
	}
	return tokens
}

func isPunctOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// TokenizerFor picks a tokenizer for the given language tag. Languages
// written without spaces get the segmenting tokenizer; if the analyzer
// cannot be initialized the space tokenizer is the fallback.
func TokenizerFor(lang string) Tokenizer {
	base := lang
	if i := strings.IndexAny(lang, "_-"); i > 0 {
		base = lang[:i]
	}
	if base == "ja" {
		seg, err := NewSegmentTokenizer()
		if err != nil {
			log.Warnf("Segmenting tokenizer unavailable for %s: %v, falling back to whitespace", lang, err)
			return SpaceTokenizer{}
		}
		return seg
	}
	return SpaceTokenizer{}
}
