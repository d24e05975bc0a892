// Package extractor pulls media mentions out of chat messages. It is a pure
// heuristic pass: regex pattern families per category, fixed base confidences,
// and a co-occurrence nudge for streaming service names.
package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type Category string

const (
	CategoryAnime   Category = "anime"
	CategoryTVShow  Category = "tvshow"
	CategoryGame    Category = "game"
	CategoryYouTube Category = "youtube"
)

// Candidate is one classified media mention.
type Candidate struct {
	Category   Category
	Title      string
	URL        string
	Confidence float64
}

// urlAttachRange is how close (in characters) a URL must be to a title match
// to be attached to the candidate.
const urlAttachRange = 50

type family struct {
	category   Category
	confidence float64
	patterns   []*regexp.Regexp
}

type nudgeRule struct {
	service string
	boost   float64
}

// Extractor holds the compiled pattern set. Stateless across calls.
type Extractor struct {
	families []family
	nudges   []nudgeRule
}

// New builds an Extractor from the package pattern tables.
func New() *Extractor {
	return &Extractor{
		families: []family{
			{category: CategoryAnime, confidence: 0.8, patterns: animePatterns},
			{category: CategoryTVShow, confidence: 0.7, patterns: tvPatterns},
			{category: CategoryGame, confidence: 0.7, patterns: gamePatterns},
		},
		nudges: serviceNudges,
	}
}

// Extract classifies one message body. Candidates are de-duplicated by cleaned
// title within this call only; output order is deterministic for a given input.
func (e *Extractor) Extract(text string) []Candidate {
	urlSpans := urlPattern.FindAllStringIndex(text, -1)
	seen := make(map[string]bool)
	var out []Candidate

	for _, fam := range e.families {
		for _, re := range fam.patterns {
			for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
				if len(m) < 4 || m[2] < 0 {
					continue
				}
				title := cleanTitle(text[m[2]:m[3]])
				if utf8.RuneCountInString(title) <= 2 {
					continue
				}
				key := strings.ToLower(title)
				if seen[key] {
					continue
				}
				seen[key] = true

				out = append(out, Candidate{
					Category:   fam.category,
					Title:      title,
					URL:        nearbyURL(text, urlSpans, m[0], m[1]),
					Confidence: clamp(fam.confidence),
				})
			}
		}
	}

	for _, m := range videoLinkPattern.FindAllStringSubmatchIndex(text, -1) {
		id := text[m[2]:m[3]]
		key := strings.ToLower(id)
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, Candidate{
			Category:   CategoryYouTube,
			Title:      id,
			URL:        text[m[0]:m[1]],
			Confidence: 1.0,
		})
	}

	// Service co-occurrence nudges existing title candidates, never creates new ones.
	lower := strings.ToLower(text)
	for _, rule := range e.nudges {
		if !strings.Contains(lower, rule.service) {
			continue
		}
		for i := range out {
			if out[i].Category == CategoryYouTube {
				continue
			}
			out[i].Confidence = clamp(out[i].Confidence + rule.boost)
		}
	}

	return out
}

// cleanTitle trims punctuation and whitespace, collapses doubled spaces, and
// drops one trailing stop-word from multi-word titles.
func cleanTitle(s string) string {
	s = strings.Trim(s, " \t\"'`.,!?:;()[]-")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	words := strings.Fields(s)
	if len(words) > 1 && stopWords[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
		s = strings.Join(words, " ")
	}
	return s
}

// nearbyURL returns the first URL whose span lies within urlAttachRange
// characters of the match span, or "".
func nearbyURL(text string, urlSpans [][]int, start, end int) string {
	for _, span := range urlSpans {
		gap := 0
		switch {
		case span[0] >= end:
			gap = span[0] - end
		case span[1] <= start:
			gap = start - span[1]
		}
		if gap <= urlAttachRange {
			return strings.TrimRight(text[span[0]:span[1]], ".,)!?")
		}
	}
	return ""
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
