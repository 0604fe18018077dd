package fluency

import (
	"fmt"
	"strings"
	"time"
)

// Tone is a coarse qualitative label for a transcript, derived from filler
// density and utterance length.
type Tone string

const (
	// ToneHesitant indicates filler words exceed 10% of the spoken tokens.
	ToneHesitant Tone = "hesitant"

	// ToneNeutral is the default when neither hesitancy nor length stands out.
	ToneNeutral Tone = "neutral"

	// ToneConfident indicates a filler-light transcript longer than 15 tokens.
	ToneConfident Tone = "confident"
)

// repeatedWordMinLen and repeatedWordMinFreq bound which tokens count as
// overused: short function words ("the", "and") are exempt, and a word must
// recur more than three times before it is flagged.
const (
	repeatedWordMinLen  = 3
	repeatedWordMinFreq = 3
)

// ExtendedReport augments [Report] with tone classification and overused-word
// detection.
type ExtendedReport struct {
	Report

	// Tone labels the overall delivery.
	Tone Tone `json:"tone"`

	// RepeatedWords lists overused tokens in first-appearance order. Empty
	// when no token exceeded the repetition bounds.
	RepeatedWords []string `json:"repeated_words,omitempty"`
}

// AnalyzeExtended runs [Analyzer.Analyze] and layers repeated-word detection
// and tone classification on top. Repeated words deduct a single additional
// point regardless of how many distinct words are flagged. Like Analyze it is
// pure and never fails.
func (a *Analyzer) AnalyzeExtended(text string, duration time.Duration) ExtendedReport {
	base := a.Analyze(text, duration)
	tokens := strings.Fields(text)

	repeated := repeatedWords(tokens)
	if len(repeated) > 0 {
		base.Messages = append(base.Messages, fmt.Sprintf(
			"You leaned on %s a lot. Mixing in synonyms keeps listeners engaged.",
			quoteList(repeated)))
		base.Score = clampScore(base.Score - 1)
	}

	return ExtendedReport{
		Report:        base,
		Tone:          classifyTone(base.Fillers, len(tokens)),
		RepeatedWords: repeated,
	}
}

// repeatedWords returns the lowercased tokens longer than repeatedWordMinLen
// that occur more than repeatedWordMinFreq times, ordered by first appearance.
func repeatedWords(tokens []string) []string {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[strings.ToLower(t)]++
	}

	var repeated []string
	seen := make(map[string]bool)
	for _, t := range tokens {
		lower := strings.ToLower(t)
		if len(lower) <= repeatedWordMinLen || freq[lower] <= repeatedWordMinFreq || seen[lower] {
			continue
		}
		seen[lower] = true
		repeated = append(repeated, lower)
	}
	return repeated
}

// classifyTone derives the tone label from the filler histogram and token
// count. Filler occurrences above 10% of tokens read as hesitant; otherwise
// anything longer than 15 tokens reads as confident.
func classifyTone(fillers map[string]int, tokenCount int) Tone {
	total := 0
	for _, n := range fillers {
		total += n
	}
	switch {
	case tokenCount > 0 && float64(total) > 0.10*float64(tokenCount):
		return ToneHesitant
	case tokenCount > 15:
		return ToneConfident
	default:
		return ToneNeutral
	}
}

// quoteList renders up to three words as a quoted, comma-separated list.
func quoteList(words []string) string {
	if len(words) > 3 {
		words = words[:3]
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = fmt.Sprintf("%q", w)
	}
	return strings.Join(quoted, ", ")
}
