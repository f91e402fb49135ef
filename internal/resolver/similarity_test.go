package resolver

import (
	"math"
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"The Matrix", "matrix"},
		{"Schitt's Creek", "schitts creek"},
		{"Schitt’s Creek", "schitts creek"},
		{"Amélie", "amelie"},
		{"Breaking Bad: El Camino", "breaking bad el camino"},
		{"Law & Order", "law and order"},
		{"  Marvel's   Agents of S.H.I.E.L.D.  ", "marvels agents of s h i e l d"},
		{"The", "the"},
		{"Pokémon", "pokemon"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeTitle(tt.input); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b     string
		min, max float64
	}{
		{"Angel", "angel", 1, 1},
		{"The Matrix", "Matrix", 1, 1},
		{"Amelie", "Amélie", 1, 1},
		{"The Matrix", "The Matrix Resurrections", 0.6, 0.92},
		{"Breaking Bad", "Breaking Bad: El Camino", 0.6, 0.92},
		{"Blade Runer", "Blade Runner", 0.9, 0.92},
		{"Blade Runner", "Blade Runner 2049", 0.75, 0.85},
		{"Kitten", "Sitting", 0.5, 0.6},
		{"Angel", "Breaking Bad", 0, 0.6},
		{"", "Angel", 0, 0},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("Similarity(%q, %q) = %.3f, want in [%.2f, %.2f]", tt.a, tt.b, got, tt.min, tt.max)
		}
		if back := Similarity(tt.b, tt.a); math.Abs(back-got) > 1e-9 {
			t.Errorf("Similarity is not symmetric for %q/%q: %.3f vs %.3f", tt.a, tt.b, got, back)
		}
	}
}

func TestWordRunes(t *testing.T) {
	a, b := wordRunes("matrix matrix", "matrix resurrections")
	if len([]rune(a)) != 1 || len([]rune(b)) != 2 {
		t.Fatalf("wordRunes = %q, %q; want 1 and 2 runes", a, b)
	}
	if []rune(a)[0] != []rune(b)[0] {
		t.Errorf("shared word encoded differently: %q vs %q", a, b)
	}
}
