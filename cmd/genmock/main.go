// Command genmock generates deterministic mock fixtures for local runs and
// demos: a region catalog of rectangular administrative regions and a set of
// incident records spread across them. It uses the actual domain package so
// the fixtures match real engine behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -regions-out data/regions.json \
//	  -incidents-out data/incidents.json \
//	  -incidents 500
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/couchcryptid/incident-map-engine/internal/domain"
)

var baseDate = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

// fixtureSeed keeps output stable across runs so fixtures can be committed.
const fixtureSeed = 42

var eventTypes = []string{"armed_clash", "explosion", "protest", "civilian_targeting"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	regionsOut := flag.String("regions-out", "data/regions.json", "region catalog output path")
	incidentsOut := flag.String("incidents-out", "data/incidents.json", "incident fixture output path")
	incidentCount := flag.Int("incidents", 500, "number of incidents to generate")
	flag.Parse()

	regions := mockRegions()
	if err := writeJSON(*regionsOut, regions); err != nil {
		return err
	}

	incidents := mockIncidents(regions, *incidentCount)
	if err := verifyParseable(incidents); err != nil {
		return err
	}
	if err := writeJSON(*incidentsOut, incidents); err != nil {
		return err
	}

	log.Printf("wrote %d regions to %s and %d incidents to %s",
		len(regions), *regionsOut, len(incidents), *incidentsOut)
	return nil
}

// mockRegions lays out a 3x3 grid of rectangular regions over a plausible
// conflict-zone extent.
func mockRegions() []domain.Region {
	const (
		originLat, originLon = 9.0, 7.0
		spanDeg              = 2.0
	)

	var regions []domain.Region
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			minLat := originLat + float64(row)*spanDeg
			minLon := originLon + float64(col)*spanDeg
			id := fmt.Sprintf("ST-%d%d", row, col)
			regions = append(regions, domain.Region{
				ID:   id,
				Name: fmt.Sprintf("State %d-%d", row, col),
				Boundary: []domain.Geo{
					{Lat: minLat, Lon: minLon},
					{Lat: minLat + spanDeg, Lon: minLon},
					{Lat: minLat + spanDeg, Lon: minLon + spanDeg},
					{Lat: minLat, Lon: minLon + spanDeg},
				},
			})
		}
	}
	return regions
}

// rawIncident is the flat collector record shape the incident topic carries,
// so the fixture file can be replayed onto the feed as-is.
type rawIncident struct {
	ID         string  `json:"id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Time       string  `json:"time"`
	RegionID   string  `json:"region_id"`
	EventType  string  `json:"event_type"`
	Fatalities int     `json:"fatalities"`
	Injuries   int     `json:"injuries"`
	Verified   bool    `json:"verified"`
}

func mockIncidents(regions []domain.Region, count int) []rawIncident {
	rng := rand.New(rand.NewSource(fixtureSeed))

	incidents := make([]rawIncident, 0, count)
	for i := 0; i < count; i++ {
		region := regions[rng.Intn(len(regions))]
		origin := region.Boundary[0]
		lat := origin.Lat + rng.Float64()*2.0
		lon := origin.Lon + rng.Float64()*2.0

		fatalities := 0
		if rng.Float64() < 0.4 {
			fatalities = rng.Intn(15)
		}

		incidents = append(incidents, rawIncident{
			ID:         fmt.Sprintf("inc-%04d", i),
			Lat:        lat,
			Lon:        lon,
			Time:       baseDate.Add(time.Duration(rng.Intn(30*24)) * time.Hour).Format(time.RFC3339),
			RegionID:   region.ID,
			EventType:  eventTypes[rng.Intn(len(eventTypes))],
			Fatalities: fatalities,
			Injuries:   rng.Intn(20),
			Verified:   rng.Float64() < 0.8,
		})
	}
	return incidents
}

// verifyParseable runs every fixture record through the feed's parser so a
// generated file is guaranteed to replay cleanly onto the incident topic.
func verifyParseable(incidents []rawIncident) error {
	for _, rec := range incidents {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal fixture incident %s: %w", rec.ID, err)
		}
		if _, err := domain.ParseIncident(raw); err != nil {
			return fmt.Errorf("fixture incident %s: %w", rec.ID, err)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
