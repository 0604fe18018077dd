// Package fluency implements the transcript scoring heuristic behind VoxPrep's
// speaking feedback.
//
// The central type is [Analyzer], a read-only rule engine constructed once and
// shared across sessions. [Analyzer.Analyze] takes a settled transcript and the
// elapsed speaking duration and produces a [Report]: an integer fluency score in
// [0, 10], ordered human-readable feedback messages, and a sparse histogram of
// detected filler words. Scoring starts at 10 and only ever decreases as
// deductions are applied, floored at 0.
//
// The rules, in evaluation (and message) order:
//
//  1. Filler words: each vocabulary entry is matched case-insensitively as a
//     whole word or phrase. An entry with at least three occurrences deducts 2
//     points, fewer deducts 1. Each detected entry gets its own message.
//  2. Length: fewer than the minimum word count deducts 2 points.
//  3. Sentence endings: no terminal punctuation (. ? !) deducts 1 point.
//  4. Vocabulary tip: the literal word "good" triggers a suggestion with no
//     deduction.
//  5. Duration: speaking for less than the minimum duration deducts 1 point.
//
// When none of the rules fire, the report carries a single affirmation message.
//
// Analyze is pure: identical inputs always yield identical reports, and the
// Analyzer performs no I/O. [Analyzer.AnalyzeExtended] layers tone and
// repeated-word detection on top of the same base rules.
package fluency

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultVocabulary is the ordered closed set of filler words and phrases the
// Analyzer detects unless overridden with [WithVocabulary]. Histogram keys and
// filler messages follow this order.
var DefaultVocabulary = []string{
	"uh", "um", "like", "you know", "actually", "basically", "literally",
}

const (
	defaultMinWords    = 15
	defaultMinDuration = 30 * time.Second

	// maxScore is the starting score before deductions. Scores never exceed it.
	maxScore = 10
)

// Report is the outcome of scoring a single transcript.
type Report struct {
	// Score is the fluency score in [0, 10]. It starts at 10 and decreases
	// monotonically as deductions apply; it is never negative.
	Score int `json:"score"`

	// Messages holds the feedback lines in detection order: filler words
	// (vocabulary order), then length, sentence-ending, vocabulary tip, and
	// duration checks. When no rule fires it contains exactly one
	// affirmation message. Never empty.
	Messages []string `json:"messages"`

	// Fillers maps each detected vocabulary entry to its occurrence count.
	// Entries with zero occurrences are absent; the map is nil when no
	// filler was detected.
	Fillers map[string]int `json:"fillers,omitempty"`
}

// Option is a functional option for configuring an [Analyzer].
type Option func(*Analyzer)

// WithVocabulary replaces the filler vocabulary. Order is preserved in
// histogram iteration and message output. Entries may be single words or
// space-separated phrases; matching is case-insensitive on whole words.
func WithVocabulary(words []string) Option {
	return func(a *Analyzer) {
		if len(words) > 0 {
			a.vocabulary = words
		}
	}
}

// WithMinWords sets the word count below which the length deduction applies.
// Default: 15.
func WithMinWords(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.minWords = n
		}
	}
}

// WithMinDuration sets the speaking duration below which the brevity deduction
// applies. Default: 30s.
func WithMinDuration(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.minDuration = d
		}
	}
}

// Analyzer scores transcripts against a fixed rule set. It is read-only after
// construction and safe for concurrent use.
type Analyzer struct {
	vocabulary  []string
	patterns    []*regexp.Regexp
	minWords    int
	minDuration time.Duration

	phonetic          bool
	phoneticThreshold float64
}

// New returns an [Analyzer] configured with the supplied options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		vocabulary:        DefaultVocabulary,
		minWords:          defaultMinWords,
		minDuration:       defaultMinDuration,
		phoneticThreshold: defaultPhoneticThreshold,
	}
	for _, o := range opts {
		o(a)
	}
	a.patterns = compileVocabulary(a.vocabulary)
	return a
}

// compileVocabulary builds one case-insensitive whole-word pattern per entry.
// Phrases keep their literal internal spacing.
func compileVocabulary(vocabulary []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(vocabulary))
	for i, w := range vocabulary {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return patterns
}

// Analyze scores text against the analyzer's rules. duration is the elapsed
// speaking time for the transcript. Analyze never fails: empty input simply
// accumulates the length, sentence-ending, and duration deductions.
func (a *Analyzer) Analyze(text string, duration time.Duration) Report {
	score := maxScore
	var messages []string
	var fillers map[string]int

	for i, word := range a.vocabulary {
		n := len(a.patterns[i].FindAllStringIndex(text, -1))
		if a.phonetic {
			n += a.countPhoneticVariants(text, word)
		}
		if n == 0 {
			continue
		}
		if fillers == nil {
			fillers = make(map[string]int)
		}
		fillers[word] = n
		messages = append(messages, fillerMessage(word, n))
		if n >= 3 {
			score -= 2
		} else {
			score--
		}
	}

	words := strings.Fields(text)
	if len(words) < a.minWords {
		messages = append(messages, "Your response was quite short. Try to elaborate and speak in more detail.")
		score -= 2
	}

	if !strings.ContainsAny(text, ".?!") {
		messages = append(messages, "Try speaking in complete sentences; no sentence-ending punctuation was detected.")
		score--
	}

	if strings.Contains(text, "good") {
		messages = append(messages, `Consider swapping "good" for a more vivid word such as "excellent" or "effective".`)
	}

	if duration < a.minDuration {
		messages = append(messages, fmt.Sprintf(
			"Keep going a little longer next time; aim for at least %d seconds of speaking.",
			int(a.minDuration.Seconds())))
		score--
	}

	if len(messages) == 0 {
		messages = append(messages, "Great job! Your delivery was clear, fluent, and well paced.")
	}

	return Report{
		Score:    clampScore(score),
		Messages: messages,
		Fillers:  fillers,
	}
}

// fillerMessage renders the per-filler feedback line.
func fillerMessage(word string, count int) string {
	if count == 1 {
		return fmt.Sprintf("You said %q once. Try replacing it with a brief pause.", word)
	}
	return fmt.Sprintf("You said %q %d times. Try replacing it with a brief pause.", word, count)
}

// clampScore floors the score at 0 and caps it at maxScore. Deductions can
// only decrease the score, so the cap is a defensive invariant.
func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > maxScore {
		return maxScore
	}
	return s
}
