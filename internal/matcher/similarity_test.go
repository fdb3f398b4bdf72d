package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "kerkstraat12", "kerkstraat12", 1},
		{"both empty", "", "", 1},
		{"one empty", "kerkstraat12", "", 0},
		{"one substitution", "kerkstraat12", "kerkstraat13", 11.0 / 12.0},
		{"insertion", "kerkstraat12", "kerkstraat12a", 12.0 / 13.0},
		{"nothing shared", "abc", "xyz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	t.Parallel()
	pairs := [][2]string{
		{"kerkstraat12", "kerkstr12"},
		{"dorpsweg1a", "dorpweg1"},
		{"", "x"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]))
	}
}

func TestScore_NormalizationSymmetry(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1.0, Score("Kerkstraat 12", "kerkstraat12"))
	assert.Equal(t, 1.0, Score("KERKSTRAAT 12", "  kerkstraat\t12"))
	assert.Equal(t, Score("Kerkstraat 12", "Kerkstr. 12"), Score("kerkstr 12", "KERKSTRAAT 12"))
}
