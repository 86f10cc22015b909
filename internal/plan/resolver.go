package plan

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Stop is the resolver/mutation view of a persisted trip stop. Edits address
// stops by name because plan content comes from free text (LLM or user) with
// no stable client-side identifiers.
type Stop struct {
	ID          uuid.UUID
	Name        string
	Description string
	Lat         float64
	Lng         float64
	Order       int
}

// ResolveOutcome is the trichotomy of a name lookup. Callers must never guess
// on Ambiguous; the conversational layer asks a clarifying question instead.
type ResolveOutcome string

const (
	ResolveOK        ResolveOutcome = "ok"
	ResolveUnmatched ResolveOutcome = "unmatched"
	ResolveAmbiguous ResolveOutcome = "ambiguous"
)

// NameResolutionError reports a failed single-name lookup with the offending
// name so the caller can surface it verbatim.
type NameResolutionError struct {
	Name    string
	Outcome ResolveOutcome
}

func (e *NameResolutionError) Error() string {
	return fmt.Sprintf("stop name %q: %s", e.Name, e.Outcome)
}

// Normalize prepares a stop name for equality comparison: trim, lowercase,
// collapse internal whitespace, strip leading/trailing punctuation.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return s
}

// Resolve finds the unique stop whose normalized name equals the normalized
// target. Zero matches is Unmatched, two or more is Ambiguous.
func Resolve(stops []Stop, targetName string) (uuid.UUID, ResolveOutcome) {
	target := Normalize(targetName)
	if target == "" {
		return uuid.Nil, ResolveUnmatched
	}
	var matched uuid.UUID
	count := 0
	for _, s := range stops {
		if Normalize(s.Name) == target {
			matched = s.ID
			count++
		}
	}
	switch count {
	case 0:
		return uuid.Nil, ResolveUnmatched
	case 1:
		return matched, ResolveOK
	default:
		return uuid.Nil, ResolveAmbiguous
	}
}
