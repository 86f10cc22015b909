package plan

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
)

// Issue is a single path-qualified schema complaint.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError rejects a write payload before any mutation is applied.
// Stored revision payloads go through the same check on replay; schema
// requirements may have evolved since the payload was first accepted.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, iss := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", iss.Path, iss.Message))
	}
	return "invalid plan payload: " + strings.Join(parts, "; ")
}

// SchemaCache memoizes the enum sets the validator checks against. It is
// process-scoped state passed by reference, not a module singleton; Reset
// exists for tests.
type SchemaCache struct {
	mu        sync.Mutex
	itemTypes map[string]struct{}
	stopKinds map[string]struct{}
}

func NewSchemaCache() *SchemaCache {
	return &SchemaCache{}
}

func (c *SchemaCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.itemTypes = nil
	c.stopKinds = nil
}

func (c *SchemaCache) load() (map[string]struct{}, map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.itemTypes == nil {
		c.itemTypes = map[string]struct{}{}
		for _, t := range []domain.ItemType{
			domain.ItemSight, domain.ItemExperience, domain.ItemMeal,
			domain.ItemFreeTime, domain.ItemTransport, domain.ItemNote, domain.ItemLodging,
		} {
			c.itemTypes[string(t)] = struct{}{}
		}
		c.stopKinds = map[string]struct{}{}
		for _, k := range []domain.StopType{
			domain.StopCity, domain.StopRegion, domain.StopRoadTrip, domain.StopTrail,
		} {
			c.stopKinds[string(k)] = struct{}{}
		}
	}
	return c.itemTypes, c.stopKinds
}

// Validate checks a write payload against the current schema. Unknown item
// types and stop kinds are tolerated (they normalize on write); structural
// problems are not.
func (c *SchemaCache) Validate(p WritePayload) error {
	_, _ = c.load()
	var issues []Issue

	seenDayIndex := map[int]string{}
	for si, stop := range p.Stops {
		stopPath := fmt.Sprintf("stops[%d]", si)
		if strings.TrimSpace(stop.Name) == "" {
			issues = append(issues, Issue{Path: stopPath + ".name", Message: "stop name is required"})
		}
		for di, day := range stop.Days {
			dayPath := fmt.Sprintf("%s.days[%d]", stopPath, di)
			if day.DayIndex < 1 {
				issues = append(issues, Issue{Path: dayPath + ".dayIndex", Message: "day index must be 1-based"})
			} else if prev, dup := seenDayIndex[day.DayIndex]; dup {
				issues = append(issues, Issue{
					Path:    dayPath + ".dayIndex",
					Message: fmt.Sprintf("day index %d already used at %s", day.DayIndex, prev),
				})
			} else {
				seenDayIndex[day.DayIndex] = dayPath
			}
			if day.Date != nil {
				if _, err := time.Parse("2006-01-02", *day.Date); err != nil {
					issues = append(issues, Issue{Path: dayPath + ".date", Message: "date must be YYYY-MM-DD"})
				}
			}
			for ii, item := range day.Items {
				itemPath := fmt.Sprintf("%s.items[%d]", dayPath, ii)
				if strings.TrimSpace(item.Title) == "" {
					issues = append(issues, Issue{Path: itemPath + ".title", Message: "item title is required"})
				}
				if (item.Lat == nil) != (item.Lng == nil) {
					issues = append(issues, Issue{Path: itemPath, Message: "lat and lng must be supplied together"})
				}
			}
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
