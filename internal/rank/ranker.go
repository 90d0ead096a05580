// Package rank implements a multiplicative, intent-weighted re-ranking
// pass over hybrid-search candidates, computing explainable boost
// factors instead of a cross-encoder score.
package rank

import (
	"sort"
	"strings"

	"github.com/blakazulu/search-mcp-sub002/internal/query"
)

// Candidate is one hybrid-search hit to be re-ranked.
type Candidate struct {
	ID              string
	Score           float64
	Text            string
	Path            string
	ChunkType       string
	ChunkName       string
	ChunkParentName string
	ChunkTags       []string
	ChunkDocstring  string
}

// Factors records the individual multiplicative boosts applied to one
// candidate, for explainability.
type Factors struct {
	ChunkTypeBoost    float64
	NameBoost         float64
	PathBoost         float64
	DocstringBonus    float64
	ComplexityPenalty float64
	TagBoost          float64
}

// Ranked is a Candidate annotated with its computed factors and final
// score.
type Ranked struct {
	Candidate
	Factors    Factors
	FinalScore float64
}

// Weights lets a caller de-emphasize individual factors; default 1.0
// applies a factor at full strength, 0.0 disables it (via the exponent).
type Weights struct {
	ChunkType  float64
	Name       float64
	Path       float64
	Docstring  float64
	Complexity float64
	Tag        float64
}

// DefaultWeights returns all-1.0 weights, applying every factor at full
// strength.
func DefaultWeights() Weights {
	return Weights{ChunkType: 1, Name: 1, Path: 1, Docstring: 1, Complexity: 1, Tag: 1}
}

// Config governs a ranking pass.
type Config struct {
	Enabled bool
	Weights Weights

	// MildComplexityThreshold / StrongComplexityThreshold are character
	// counts.
	MildComplexityThreshold   int
	StrongComplexityThreshold int
}

// DefaultConfig returns the ranker's default configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:                   true,
		Weights:                   DefaultWeights(),
		MildComplexityThreshold:   2000,
		StrongComplexityThreshold: 4000,
	}
}

// chunkTypeAliases normalizes loosely-named chunk types onto the
// canonical set the boost table keys on.
var chunkTypeAliases = map[string]string{
	"func":   "function",
	"class":  "class",
	"struct": "struct",
	"iface":  "interface",
	"mod":    "module",
}

// intentBoostTable maps a query intent to the chunk types it favors and
// their multiplier, keyed on the normalized, alias-resolved chunk type.
var intentBoostTable = map[query.Intent]map[string]float64{
	query.IntentFunction: {"function": 1.3, "method": 1.2},
	query.IntentMethod:   {"method": 1.3, "function": 1.15},
	query.IntentClass:    {"class": 1.3, "struct": 1.25, "interface": 1.2},
	query.IntentModule:   {"module": 1.25, "section": 1.1},
	query.IntentConfig:   {"module": 1.15, "section": 1.15},
	query.IntentDocs:     {"section": 1.3, "module": 1.1},
	query.IntentTest:     {"function": 1.15, "method": 1.15},
	query.IntentError:    {"function": 1.1, "method": 1.1},
}

// Apply re-ranks candidates for q, computing and attaching explanatory
// factors. When cfg.Enabled is false every factor short-circuits to 1.0
// and candidates keep their original relative order among ties.
func Apply(q string, candidates []Candidate, cfg Config) []Ranked {
	if cfg.MildComplexityThreshold == 0 {
		cfg.MildComplexityThreshold = DefaultConfig().MildComplexityThreshold
	}
	if cfg.StrongComplexityThreshold == 0 {
		cfg.StrongComplexityThreshold = DefaultConfig().StrongComplexityThreshold
	}

	intent := query.Classify(q)
	queryTokens := camelSnakeTokens(q)

	out := make([]Ranked, len(candidates))
	for i, c := range candidates {
		if !cfg.Enabled {
			out[i] = Ranked{Candidate: c, Factors: Factors{1, 1, 1, 1, 1, 1}, FinalScore: c.Score}
			continue
		}

		f := Factors{
			ChunkTypeBoost:    chunkTypeBoost(intent.Primary, c.ChunkType),
			NameBoost:         nameBoost(queryTokens, c.ChunkName),
			PathBoost:         pathBoost(queryTokens, c.Path),
			DocstringBonus:    docstringBonus(c.ChunkDocstring, c.ChunkType, intent.Primary),
			ComplexityPenalty: complexityPenalty(len(c.Text), cfg.MildComplexityThreshold, cfg.StrongComplexityThreshold),
			TagBoost:          tagBoost(queryTokens, c.ChunkTags),
		}

		final := c.Score *
			pow(f.ChunkTypeBoost, cfg.Weights.ChunkType) *
			pow(f.NameBoost, cfg.Weights.Name) *
			pow(f.PathBoost, cfg.Weights.Path) *
			pow(f.DocstringBonus, cfg.Weights.Docstring) *
			pow(f.ComplexityPenalty, cfg.Weights.Complexity) *
			pow(f.TagBoost, cfg.Weights.Tag)

		out[i] = Ranked{Candidate: c, Factors: f, FinalScore: final}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}

func pow(base, exp float64) float64 {
	if exp == 1 {
		return base
	}
	if exp == 0 {
		return 1
	}
	// Weights are small, caller-controlled multipliers (not exponents in
	// the general mathematical sense beyond 0/1 short-circuits); a linear
	// interpolation toward 1.0 gives the documented "de-emphasize" effect
	// without pulling in math.Pow for what is, in practice, a toggle.
	return 1 + (base-1)*exp
}

func normalizeChunkType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if alias, ok := chunkTypeAliases[t]; ok {
		return alias
	}
	return t
}

func chunkTypeBoost(intent query.Intent, chunkType string) float64 {
	table, ok := intentBoostTable[intent]
	if !ok {
		return 1.0
	}
	if boost, ok := table[normalizeChunkType(chunkType)]; ok {
		return boost
	}
	return 1.0
}

// camelSnakeTokens lowercases and splits on whitespace, underscores, and
// CamelCase boundaries, used both to tokenize the query and chunk names
// for overlap scoring.
func camelSnakeTokens(s string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, strings.ToLower(b.String()))
			b.Reset()
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.' || r == '/':
			flush()
		case i > 0 && isUpper(r) && !isUpper(runes[i-1]):
			flush()
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func nameBoost(queryTokens []string, name string) float64 {
	if name == "" {
		return 1.0
	}
	joined := strings.Join(queryTokens, "")
	if strings.EqualFold(strings.ReplaceAll(joined, " ", ""), strings.ToLower(name)) {
		return 1.4
	}

	nameTokens := camelSnakeTokens(name)
	overlap := tokenOverlapRatio(queryTokens, nameTokens)
	switch {
	case overlap >= 1.0:
		return 1.3
	case overlap >= 0.5:
		return 1.2
	case overlap > 0:
		return 1.05
	default:
		return 1.0
	}
}

func tokenOverlapRatio(query, target []string) float64 {
	if len(query) == 0 {
		return 0
	}
	set := make(map[string]bool, len(target))
	for _, t := range target {
		set[t] = true
	}
	matched := 0
	for _, q := range query {
		if set[q] {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

func pathBoost(queryTokens []string, path string) float64 {
	path = strings.ReplaceAll(path, "\\", "/")
	segments := camelSnakeTokens(path)
	set := make(map[string]bool, len(segments))
	for _, s := range segments {
		set[s] = true
	}
	hits := 0
	for _, q := range queryTokens {
		if set[q] {
			hits++
		}
	}
	boost := 1.0 + 0.05*float64(hits)
	if boost > 1.2 {
		boost = 1.2
	}
	return boost
}

func docstringBonus(docstring, chunkType string, intent query.Intent) float64 {
	if len(strings.TrimSpace(docstring)) < 10 {
		return 1.0
	}
	bonus := 1.05
	if normalizeChunkType(chunkType) == "module" && isEntityIntent(intent) {
		bonus = 1.02
	}
	return bonus
}

func isEntityIntent(intent query.Intent) bool {
	switch intent {
	case query.IntentFunction, query.IntentMethod, query.IntentClass:
		return true
	default:
		return false
	}
}

func complexityPenalty(textLen, mild, strong int) float64 {
	switch {
	case textLen >= strong:
		return 0.95
	case textLen >= mild:
		return 0.98
	default:
		return 1.0
	}
}

func tagBoost(queryTokens []string, tags []string) float64 {
	if len(tags) == 0 {
		return 1.0
	}
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[strings.ToLower(t)] = true
	}
	hits := 0
	for _, q := range queryTokens {
		if set[q] {
			hits++
		}
	}
	if hits == 0 {
		return 1.0
	}
	boost := 1.0 + 0.03*float64(hits)
	if boost > 1.15 {
		boost = 1.15
	}
	return boost
}
