package enrich

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/adetobi/trendpulse/app/content"
)

// LexiconAnalyzer is the built-in fallback model: word-list sentiment, hint
// or gazetteer based location, capitalization-based entities and frequency
// based keywords. Good enough to keep the pipeline running without an
// external analysis service.
type LexiconAnalyzer struct{}

func NewLexiconAnalyzer() *LexiconAnalyzer {
	return &LexiconAnalyzer{}
}

func (a *LexiconAnalyzer) Model() string {
	return "lexicon-v1"
}

func (a *LexiconAnalyzer) Analyze(ctx context.Context, task content.TaskType, input Input) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch task {
	case content.TaskSentiment:
		return a.sentiment(input.Text), nil
	case content.TaskLocation:
		return a.location(input), nil
	case content.TaskEntity:
		return a.entities(input.Text), nil
	case content.TaskKeyword:
		return a.keywords(input.Text), nil
	}
	return nil, fmt.Errorf("unknown task type: %q", task)
}

var positiveWords = map[string]bool{
	"good": true, "great": true, "love": true, "happy": true, "win": true,
	"best": true, "amazing": true, "excellent": true, "beautiful": true,
	"congratulations": true, "success": true, "blessed": true, "proud": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "hate": true, "sad": true, "lose": true,
	"worst": true, "awful": true, "disaster": true, "angry": true,
	"scam": true, "fraud": true, "fail": true, "crisis": true,
}

func (a *LexiconAnalyzer) sentiment(text string) *Analysis {
	words := tokenize(text)

	var pos, neg int
	for _, w := range words {
		if positiveWords[w] {
			pos++
		}
		if negativeWords[w] {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return &Analysis{Label: "neutral", Score: 0, Confidence: 0.5}
	}

	score := float64(pos-neg) / float64(total)
	label := "neutral"
	if score > 0.2 {
		label = "positive"
	} else if score < -0.2 {
		label = "negative"
	}

	confidence := float64(total) / float64(len(words))
	if confidence > 1 {
		confidence = 1
	}

	return &Analysis{Label: label, Score: score, Confidence: confidence}
}

var knownPlaces = []string{
	"lagos", "abuja", "kano", "ibadan", "port harcourt", "accra", "nairobi",
	"johannesburg", "london", "new york",
}

func (a *LexiconAnalyzer) location(input Input) *Analysis {
	if hint := strings.TrimSpace(input.LocationHint); hint != "" {
		return &Analysis{Label: "hint", Location: hint, Confidence: 0.9}
	}

	lower := strings.ToLower(input.Text)
	for _, place := range knownPlaces {
		if strings.Contains(lower, place) {
			return &Analysis{Label: "text", Location: place, Confidence: 0.6}
		}
	}

	return &Analysis{Label: "unknown", Location: "", Confidence: 0.1}
}

var entityPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)*\b`)

func (a *LexiconAnalyzer) entities(text string) *Analysis {
	matches := entityPattern.FindAllString(text, -1)

	seen := make(map[string]bool, len(matches))
	var entities []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		entities = append(entities, m)
	}

	return &Analysis{Label: "heuristic", Entities: entities, Confidence: 0.4}
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "to": true, "of": true, "in": true,
	"on": true, "for": true, "with": true, "at": true, "this": true,
	"that": true, "it": true, "be": true, "as": true, "by": true, "we": true,
	"you": true, "i": true, "my": true, "so": true, "not": true, "have": true,
}

func (a *LexiconAnalyzer) keywords(text string) *Analysis {
	words := tokenize(text)

	freq := make(map[string]int)
	for _, w := range words {
		if len(w) < 3 || stopWords[w] || strings.HasPrefix(w, "#") || strings.HasPrefix(w, "@") {
			continue
		}
		freq[w]++
	}

	keywords := make([]string, 0, len(freq))
	for w := range freq {
		keywords = append(keywords, w)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if freq[keywords[i]] != freq[keywords[j]] {
			return freq[keywords[i]] > freq[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	if len(keywords) > 10 {
		keywords = keywords[:10]
	}

	return &Analysis{Label: "frequency", Keywords: keywords, Confidence: 0.5}
}

var tokenPattern = regexp.MustCompile(`[#@]?[\p{L}\p{N}']+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
