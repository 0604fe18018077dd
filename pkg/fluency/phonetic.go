package fluency

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// defaultPhoneticThreshold is the minimum Jaro-Winkler similarity a token must
// reach against a vocabulary word before a phonetic variant counts as that
// filler. Stretched fillers score around 0.87 ("ummm" vs "um"), so the default
// sits just below that.
const defaultPhoneticThreshold = 0.8

// WithPhoneticFillers enables detection of stretched filler variants such as
// "ummm" or "uhh". A token counts as a variant of a single-word vocabulary
// entry when its Double Metaphone code matches the entry's and the
// Jaro-Winkler similarity meets the threshold. Variant counts merge into the
// canonical entry's histogram bucket.
//
// Disabled by default so histogram counts stay literal.
func WithPhoneticFillers() Option {
	return func(a *Analyzer) {
		a.phonetic = true
	}
}

// WithPhoneticThreshold sets the Jaro-Winkler similarity cutoff used by
// [WithPhoneticFillers]. Default: 0.8.
func WithPhoneticThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		if threshold > 0 {
			a.phoneticThreshold = threshold
		}
	}
}

// countPhoneticVariants counts tokens in text that sound like word without
// spelling it exactly. Exact matches are excluded: the whole-word pattern has
// already counted them. Multi-word vocabulary entries are skipped, as phonetic
// codes are per-token.
//
// Repeated runes collapse before encoding: a stretched consonant run changes
// the Double Metaphone code ("ummm" encodes as AMM, "um" as AM), so codes are
// compared on the collapsed forms while the similarity threshold still applies
// to the spoken token.
func (a *Analyzer) countPhoneticVariants(text, word string) int {
	if strings.ContainsRune(word, ' ') {
		return 0
	}

	wantPrimary, wantSecondary := matchr.DoubleMetaphone(collapseRuns(word))
	if wantPrimary == "" && wantSecondary == "" {
		return 0
	}

	count := 0
	for _, raw := range strings.Fields(text) {
		token := strings.ToLower(strings.Trim(raw, `.,!?;:"'`))
		if token == "" || token == word {
			continue
		}
		p, s := matchr.DoubleMetaphone(collapseRuns(token))
		if !codesMatch(p, s, wantPrimary, wantSecondary) {
			continue
		}
		if matchr.JaroWinkler(token, word, false) >= a.phoneticThreshold {
			count++
		}
	}
	return count
}

// collapseRuns squeezes consecutive repeats of the same rune into one, so
// "ummm" and "um" encode identically.
func collapseRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune = -1
	for _, r := range s {
		if r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// codesMatch reports whether any non-empty code from one pair equals any
// non-empty code from the other.
func codesMatch(p1, s1, p2, s2 string) bool {
	for _, a := range []string{p1, s1} {
		if a == "" {
			continue
		}
		if a == p2 || (s2 != "" && a == s2) {
			return true
		}
	}
	return false
}
