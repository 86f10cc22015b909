package plan

import (
	"testing"

	"github.com/google/uuid"
)

func stopList(names ...string) []Stop {
	stops := make([]Stop, 0, len(names))
	for i, n := range names {
		stops = append(stops, Stop{ID: uuid.New(), Name: n, Order: i + 1})
	}
	return stops
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Amsterdam  ", "amsterdam"},
		{"AMSTERDAM", "amsterdam"},
		{"De   Zotte", "de zotte"},
		{"\"Melkweg\"", "melkweg"},
		{"- Paradiso -", "paradiso"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveSingleMatch(t *testing.T) {
	stops := stopList("Canal Cruise", "De Zotte", "Melkweg")
	id, outcome := Resolve(stops, "  de zotte ")
	if outcome != ResolveOK {
		t.Fatalf("outcome = %s, want ok", outcome)
	}
	if id != stops[1].ID {
		t.Fatalf("resolved wrong stop: got %s want %s", id, stops[1].ID)
	}
}

func TestResolveUnmatched(t *testing.T) {
	stops := stopList("Canal Cruise", "De Zotte")
	if _, outcome := Resolve(stops, "Loetje"); outcome != ResolveUnmatched {
		t.Fatalf("outcome = %s, want unmatched", outcome)
	}
	if _, outcome := Resolve(stops, "   "); outcome != ResolveUnmatched {
		t.Fatalf("blank target: outcome = %s, want unmatched", outcome)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	stops := stopList("Melkweg", "De Zotte", "melkweg  ")
	if _, outcome := Resolve(stops, "Melkweg"); outcome != ResolveAmbiguous {
		t.Fatalf("outcome = %s, want ambiguous", outcome)
	}
}
