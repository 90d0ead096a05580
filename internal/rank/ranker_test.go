package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApply_HybridSearchScenario verifies a class chunk outranks an
// unrelated module chunk for a class-intent query.
func TestApply_HybridSearchScenario(t *testing.T) {
	candidates := []Candidate{
		{
			ID:        "c1",
			Score:     0.6,
			Text:      "class AuthService {}",
			ChunkName: "AuthService",
			ChunkType: "class",
			Path:      "src/auth/service.ts",
		},
		{
			ID:        "c2",
			Score:     0.6,
			Text:      "utility helpers",
			ChunkName: "utils",
			ChunkType: "module",
			Path:      "src/utils/index.ts",
		},
	}

	ranked := Apply("auth class", candidates, DefaultConfig())
	require.Len(t, ranked, 2)
	assert.Equal(t, "c1", ranked[0].ID)
	assert.Greater(t, ranked[0].FinalScore, ranked[1].FinalScore)
}

func TestApply_DisabledShortCircuitsAllFactors(t *testing.T) {
	candidates := []Candidate{{ID: "c1", Score: 0.5, ChunkName: "Foo", ChunkType: "class"}}
	cfg := DefaultConfig()
	cfg.Enabled = false
	ranked := Apply("foo class", candidates, cfg)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1.0, ranked[0].Factors.ChunkTypeBoost)
	assert.Equal(t, 1.0, ranked[0].Factors.NameBoost)
	assert.Equal(t, 0.5, ranked[0].FinalScore)
}

func TestApply_NameBoostExactMatch(t *testing.T) {
	candidates := []Candidate{{ID: "c1", Score: 1.0, ChunkName: "Login"}}
	ranked := Apply("login", candidates, DefaultConfig())
	assert.Equal(t, 1.4, ranked[0].Factors.NameBoost)
}

func TestApply_Idempotent(t *testing.T) {
	candidates := []Candidate{
		{ID: "c1", Score: 0.6, ChunkName: "AuthService", ChunkType: "class", Path: "src/auth/service.ts"},
		{ID: "c2", Score: 0.6, ChunkName: "utils", ChunkType: "module", Path: "src/utils/index.ts"},
	}
	once := Apply("auth class", candidates, DefaultConfig())

	again := make([]Candidate, len(once))
	for i, r := range once {
		again[i] = Candidate{
			ID:        r.ID,
			Score:     r.FinalScore,
			Text:      r.Text,
			ChunkName: r.ChunkName,
			ChunkType: r.ChunkType,
			Path:      r.Path,
		}
	}
	twice := Apply("auth class", again, DefaultConfig())

	require.Len(t, twice, len(once))
	for i := range once {
		assert.Equal(t, once[i].ID, twice[i].ID)
	}
}

func TestApply_ComplexityPenalty(t *testing.T) {
	longText := make([]byte, 5000)
	for i := range longText {
		longText[i] = 'a'
	}
	candidates := []Candidate{{ID: "c1", Score: 1.0, Text: string(longText)}}
	ranked := Apply("anything", candidates, DefaultConfig())
	assert.Equal(t, 0.95, ranked[0].Factors.ComplexityPenalty)
}
