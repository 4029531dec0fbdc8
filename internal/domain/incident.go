package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Incident is an observed conflict event. Immutable once created; the engine
// only reads incidents, never mutates them.
type Incident struct {
	ID         string    `json:"id"`
	Geo        Geo       `json:"geo"`
	Timestamp  time.Time `json:"timestamp"`
	RegionID   string    `json:"region_id,omitempty"` // empty if ungeocoded
	EventType  string    `json:"event_type"`
	Fatalities int       `json:"fatalities"`
	Injuries   int       `json:"injuries"`
	Verified   bool      `json:"verified"`

	IngestedAt time.Time `json:"ingested_at,omitempty"`
}

// rawIncidentRecord is the flat JSON structure published by the collector.
type rawIncidentRecord struct {
	ID         string  `json:"id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Time       string  `json:"time"` // RFC 3339
	RegionID   string  `json:"region_id"`
	EventType  string  `json:"event_type"`
	Fatalities int     `json:"fatalities"`
	Injuries   int     `json:"injuries"`
	Verified   bool    `json:"verified"`
}

// ParseIncident deserializes a feed message into an Incident. Records without
// an upstream ID get a deterministic one so replays dedupe cleanly. Negative
// casualty counts are clamped to zero rather than rejected.
func ParseIncident(value []byte) (Incident, error) {
	var rec rawIncidentRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return Incident{}, fmt.Errorf("parse incident: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, rec.Time)
	if err != nil {
		return Incident{}, fmt.Errorf("parse incident time %q: %w", rec.Time, err)
	}

	id := strings.TrimSpace(rec.ID)
	if id == "" {
		id = generateID(rec.EventType, rec.RegionID, rec.Lat, rec.Lon, rec.Time)
	}

	return Incident{
		ID:         id,
		Geo:        Geo{Lat: rec.Lat, Lon: rec.Lon},
		Timestamp:  ts.UTC(),
		RegionID:   rec.RegionID,
		EventType:  rec.EventType,
		Fatalities: max(rec.Fatalities, 0),
		Injuries:   max(rec.Injuries, 0),
		Verified:   rec.Verified,
		IngestedAt: clock.Now().UTC(),
	}, nil
}

// generateID produces a deterministic ID from the record's key fields.
// Reprocessing the same raw record yields the same ID, enabling replay-safe
// deduplication in the feed adapter.
func generateID(eventType, regionID string, lat, lon float64, timeStr string) string {
	input := fmt.Sprintf("%s|%s|%.4f|%.4f|%s", eventType, regionID, lat, lon, timeStr)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if eventType == "" {
		return short
	}
	return eventType + "-" + short
}

// FilterCriteria is the value object driving working-set derivation. Empty
// Regions or EventTypes mean "all". Zero Start/End mean unbounded. Equality
// (after Normalize) drives recompute skipping in the controller.
type FilterCriteria struct {
	Start         time.Time `json:"start,omitempty"`
	End           time.Time `json:"end,omitempty"`
	Regions       []string  `json:"regions,omitempty"`
	EventTypes    []string  `json:"event_types,omitempty"`
	MinFatalities int       `json:"min_fatalities,omitempty"`
}

// Normalize sorts and dedupes the set fields so that criteria differing only
// in set ordering compare equal.
func (c FilterCriteria) Normalize() FilterCriteria {
	c.Regions = normalizeSet(c.Regions)
	c.EventTypes = normalizeSet(c.EventTypes)
	return c
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := slices.Clone(values)
	sort.Strings(out)
	return slices.Compact(out)
}

// Equal reports field-wise equality of two normalized criteria.
func (c FilterCriteria) Equal(o FilterCriteria) bool {
	return c.Start.Equal(o.Start) &&
		c.End.Equal(o.End) &&
		slices.Equal(c.Regions, o.Regions) &&
		slices.Equal(c.EventTypes, o.EventTypes) &&
		c.MinFatalities == o.MinFatalities
}

// Matches reports whether an incident satisfies the criteria. Coordinate
// validity is checked separately during working-set derivation.
func (c FilterCriteria) Matches(in Incident) bool {
	if !c.Start.IsZero() && in.Timestamp.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && in.Timestamp.After(c.End) {
		return false
	}
	if len(c.Regions) > 0 && !slices.Contains(c.Regions, in.RegionID) {
		return false
	}
	if len(c.EventTypes) > 0 && !slices.Contains(c.EventTypes, in.EventType) {
		return false
	}
	return in.Fatalities >= c.MinFatalities
}

// WorkingSet is the ordered sequence of incidents satisfying the current
// criteria. Derived, never persisted.
type WorkingSet []Incident

// DeriveWorkingSet filters the base collection down to the incidents matching
// the criteria, ordered by timestamp then ID for determinism. Records with
// missing or out-of-range coordinates are excluded and counted in the second
// return value.
func DeriveWorkingSet(base []Incident, c FilterCriteria) (WorkingSet, int) {
	c = c.Normalize()

	ws := make(WorkingSet, 0, len(base))
	skipped := 0
	for _, in := range base {
		if !in.Geo.Valid() {
			skipped++
			continue
		}
		if c.Matches(in) {
			ws = append(ws, in)
		}
	}

	sort.Slice(ws, func(i, j int) bool {
		if !ws[i].Timestamp.Equal(ws[j].Timestamp) {
			return ws[i].Timestamp.Before(ws[j].Timestamp)
		}
		return ws[i].ID < ws[j].ID
	})
	return ws, skipped
}
