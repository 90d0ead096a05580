// Package query implements query intent classification and term
// expansion, using a keyword/pattern-based classifier style.
package query

import "strings"

// Intent is the primary classification a raw query is assigned to.
type Intent string

const (
	IntentFunction Intent = "function"
	IntentClass    Intent = "class"
	IntentMethod   Intent = "method"
	IntentModule   Intent = "module"
	IntentConfig   Intent = "config"
	IntentTest     Intent = "test"
	IntentDocs     Intent = "docs"
	IntentError    Intent = "error"
	IntentOther    Intent = "other"
)

// Classification is the intent classifier's output: a primary intent plus
// a confidence in [0, 1].
type Classification struct {
	Primary    Intent
	Confidence float64
}

// keywordPattern is one candidate intent's keyword/phrase vote, scored by
// the fraction of its keywords present in the query.
type keywordPattern struct {
	intent    Intent
	keywords  []string
	baseScore float64
}

var patterns = []keywordPattern{
	{IntentFunction, []string{"function", "func", "method call", "invoke", "call "}, 0.75},
	{IntentClass, []string{"class", "struct", "interface", "type", "object"}, 0.75},
	{IntentMethod, []string{"method", "member function", "receiver"}, 0.7},
	{IntentModule, []string{"module", "package", "import", "namespace", "library"}, 0.7},
	{IntentConfig, []string{"config", "configuration", "settings", "env", "yaml", "options"}, 0.8},
	{IntentTest, []string{"test", "spec", "assert", "mock", "fixture"}, 0.8},
	{IntentDocs, []string{"doc", "docs", "readme", "guide", "tutorial", "documentation"}, 0.8},
	{IntentError, []string{"error", "exception", "panic", "fail", "bug", "crash", "traceback"}, 0.8},
}

// Classify assigns a primary intent to a raw query using keyword-vote
// heuristics.
func Classify(rawQuery string) Classification {
	normalized := strings.ToLower(rawQuery)

	var best keywordPattern
	var bestScore float64
	for _, p := range patterns {
		matchCount := 0
		for _, kw := range p.keywords {
			if strings.Contains(normalized, kw) {
				matchCount++
			}
		}
		if matchCount == 0 {
			continue
		}
		score := p.baseScore * (float64(matchCount) / float64(len(p.keywords)))
		if score > bestScore {
			bestScore = score
			best = p
		}
	}

	if bestScore == 0 {
		return Classification{Primary: IntentOther, Confidence: 0.3}
	}
	return Classification{Primary: best.intent, Confidence: clamp01(bestScore)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
