package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoChangesRequested is returned by ApplyUpdateByName when the request
// names a stop but supplies nothing to change.
var ErrNoChangesRequested = errors.New("no changes requested")

// ReorderError aborts a reorder request wholesale: any unmatched or ambiguous
// name leaves the list untouched, and the complete set of offending names is
// reported, not just the first.
type ReorderError struct {
	Unmatched []string
	Ambiguous []string
}

func (e *ReorderError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Unmatched) > 0 {
		parts = append(parts, fmt.Sprintf("unmatched: %s", strings.Join(e.Unmatched, ", ")))
	}
	if len(e.Ambiguous) > 0 {
		parts = append(parts, fmt.Sprintf("ambiguous: %s", strings.Join(e.Ambiguous, ", ")))
	}
	return "reorder failed (" + strings.Join(parts, "; ") + ")"
}

// UpdateRequest merges new fields into the stop matching TargetName.
type UpdateRequest struct {
	TargetName  string
	NewName     *string
	Description *string
}

// AppendRequest appends a new stop at the end of the route.
type AppendRequest struct {
	Name        string
	Lat         float64
	Lng         float64
	Description *string
}

// resequence returns a copy with Order rewritten as a dense 1-based sequence.
// Incoming order values are never trusted.
func resequence(stops []Stop) []Stop {
	out := make([]Stop, len(stops))
	copy(out, stops)
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}

// ApplyUpdateByName resolves TargetName and merges the supplied fields into
// the matched stop.
func ApplyUpdateByName(stops []Stop, req UpdateRequest) ([]Stop, error) {
	if req.NewName == nil && req.Description == nil {
		return nil, ErrNoChangesRequested
	}
	id, outcome := Resolve(stops, req.TargetName)
	if outcome != ResolveOK {
		return nil, &NameResolutionError{Name: req.TargetName, Outcome: outcome}
	}
	out := make([]Stop, len(stops))
	copy(out, stops)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		if req.NewName != nil && strings.TrimSpace(*req.NewName) != "" {
			out[i].Name = strings.TrimSpace(*req.NewName)
		}
		if req.Description != nil {
			out[i].Description = *req.Description
		}
	}
	return resequence(out), nil
}

// ApplyRemovalByName resolves the name, removes the stop and resequences.
func ApplyRemovalByName(stops []Stop, targetName string) ([]Stop, error) {
	id, outcome := Resolve(stops, targetName)
	if outcome != ResolveOK {
		return nil, &NameResolutionError{Name: targetName, Outcome: outcome}
	}
	out := make([]Stop, 0, len(stops)-1)
	for _, s := range stops {
		if s.ID == id {
			continue
		}
		out = append(out, s)
	}
	return resequence(out), nil
}

// ApplyReorderByNames repositions the named subset to the front of the route
// in the given order; unnamed stops keep their relative order after it. The
// operation is all-or-nothing: any unmatched or ambiguous name aborts it. A
// name appearing more than once in the request is ambiguous by construction.
func ApplyReorderByNames(stops []Stop, orderedNames []string) ([]Stop, error) {
	seen := map[string]int{}
	for _, n := range orderedNames {
		seen[Normalize(n)]++
	}

	var unmatched, ambiguous []string
	resolved := make([]Stop, 0, len(orderedNames))
	for _, n := range orderedNames {
		if seen[Normalize(n)] > 1 {
			ambiguous = appendUnique(ambiguous, n)
			continue
		}
		id, outcome := Resolve(stops, n)
		switch outcome {
		case ResolveUnmatched:
			unmatched = append(unmatched, n)
		case ResolveAmbiguous:
			ambiguous = appendUnique(ambiguous, n)
		default:
			for _, s := range stops {
				if s.ID == id {
					resolved = append(resolved, s)
					break
				}
			}
		}
	}
	if len(unmatched) > 0 || len(ambiguous) > 0 {
		sort.Strings(ambiguous)
		return nil, &ReorderError{Unmatched: unmatched, Ambiguous: ambiguous}
	}

	named := map[string]struct{}{}
	for _, s := range resolved {
		named[s.ID.String()] = struct{}{}
	}
	out := make([]Stop, 0, len(stops))
	out = append(out, resolved...)
	for _, s := range stops {
		if _, ok := named[s.ID.String()]; ok {
			continue
		}
		out = append(out, s)
	}
	return resequence(out), nil
}

// ApplyAppend adds a stop at the end with order = length+1.
func ApplyAppend(stops []Stop, req AppendRequest) []Stop {
	out := make([]Stop, len(stops), len(stops)+1)
	copy(out, stops)
	stop := Stop{
		Name: strings.TrimSpace(req.Name),
		Lat:  req.Lat,
		Lng:  req.Lng,
	}
	if req.Description != nil {
		stop.Description = *req.Description
	}
	out = append(out, stop)
	return resequence(out)
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if Normalize(x) == Normalize(v) {
			return list
		}
	}
	return append(list, v)
}
