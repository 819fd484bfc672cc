// Package textnorm canonicalizes text before it is stored or compared.
// All phrase store rows and dictionary lookups go through one fixed Unicode
// normalization form so comparisons never mix forms.
package textnorm

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// specialLetters rewrites letters that survive NFKD decomposition but still
// need an ASCII-ish spelling for accent-insensitive matching.
var specialLetters = map[rune]string{
	'ẞ': "SS",
	'ß': "ss",
	'Ø': "O",
	'ø': "o",
	'Æ': "AE",
	'æ': "ae",
	'Œ': "OE",
	'œ': "oe",
	'Ł': "L",
	'ł': "l",
	'Þ': "TH",
	'þ': "th",
	'Ð': "D",
	'ð': "d",
	'ĸ': "k",
}

var foldCache = sync.Map{}

// Normalize maps text to the default internal normalization form (NFD).
func Normalize(text string) string {
	return norm.NFD.String(text)
}

// FormFor returns the internal normalization form for a dictionary language.
// Korean needs compatibility decomposition so that Hangul syllables and
// compatibility Jamo compare equal.
func FormFor(lang string) norm.Form {
	if lang == "ko" || strings.HasPrefix(lang, "ko_") || strings.HasPrefix(lang, "ko-") {
		return norm.NFKD
	}
	return norm.NFD
}

// Fold strips diacritics from text, keeping any codepoint listed in keep
// untouched. Results are cached: folding runs on every prefix comparison in
// the suggest hot path, and the function is pure.
//
// keep is a plain string of precomposed codepoints (for example "åäö" for
// Swedish). Characters not in keep are NFKD-decomposed, combining marks are
// dropped, and the special letter table is applied. Unmappable input passes
// through unchanged; Fold never fails.
func Fold(text, keep string) string {
	key := text + "\x00" + keep
	if cached, ok := foldCache.Load(key); ok {
		return cached.(string)
	}
	folded := fold(text, keep)
	foldCache.Store(key, folded)
	return folded
}

func fold(text, keep string) string {
	var b strings.Builder
	b.Grow(len(text))
	// Walk composed characters so a kept "å" is seen as one rune, not as
	// "a" plus a combining ring.
	for _, r := range norm.NFC.String(text) {
		if keep != "" && strings.ContainsRune(keep, r) {
			b.WriteRune(r)
			continue
		}
		for _, d := range norm.NFKD.String(string(r)) {
			if unicode.Is(unicode.Mn, d) {
				continue
			}
			if repl, ok := specialLetters[d]; ok {
				b.WriteString(repl)
				continue
			}
			b.WriteRune(d)
		}
	}
	return b.String()
}
