package domain

import "fmt"

// RegionStyle is the per-region fill produced for the choropleth layer.
type RegionStyle struct {
	RegionID  string `json:"region_id"`
	FillColor string `json:"fill_color"`
	Label     string `json:"label"`
}

// Palette maps severity buckets to fill colors. The no-data color is neutral
// and never reused by a real bucket, so "unknown" can never be mistaken for
// "confirmed low".
type Palette struct {
	NoData   string `koanf:"no_data"`
	Low      string `koanf:"low"`
	Medium   string `koanf:"medium"`
	High     string `koanf:"high"`
	Critical string `koanf:"critical"`
}

// DefaultPalette returns the stock gray/green/amber/orange/red ramp.
func DefaultPalette() Palette {
	return Palette{
		NoData:   "#9ca3af",
		Low:      "#22c55e",
		Medium:   "#eab308",
		High:     "#f97316",
		Critical: "#dc2626",
	}
}

// ColorFor looks up the fill color for a bucket.
func (p Palette) ColorFor(b SeverityBucket) string {
	switch b {
	case BucketLow:
		return p.Low
	case BucketMedium:
		return p.Medium
	case BucketHigh:
		return p.High
	case BucketCritical:
		return p.Critical
	default:
		return p.NoData
	}
}

// MapRegions turns region aggregates into choropleth styles. It is a pure
// lookup over the palette; catalog entries with no aggregate should already
// arrive as BucketNoData from AggregateRegions.
func MapRegions(aggs []RegionAggregate, p Palette) []RegionStyle {
	styles := make([]RegionStyle, len(aggs))
	for i, agg := range aggs {
		styles[i] = RegionStyle{
			RegionID:  agg.RegionID,
			FillColor: p.ColorFor(agg.Bucket),
			Label:     styleLabel(agg),
		}
	}
	return styles
}

func styleLabel(agg RegionAggregate) string {
	if agg.Bucket == BucketNoData {
		return "no data"
	}
	return fmt.Sprintf("%s — %d incidents, %d fatalities", agg.Bucket, agg.Incidents, agg.Fatalities)
}

// LegendEntry is one row of the bucket → color → label legend exposed to the
// UI chrome collaborator.
type LegendEntry struct {
	Bucket SeverityBucket `json:"bucket"`
	Color  string         `json:"color"`
	Label  string         `json:"label"`
}

// Legend lists all buckets in ascending severity order, no-data first.
func Legend(p Palette) []LegendEntry {
	buckets := []SeverityBucket{BucketNoData, BucketLow, BucketMedium, BucketHigh, BucketCritical}
	entries := make([]LegendEntry, len(buckets))
	for i, b := range buckets {
		label := b.String()
		if b == BucketNoData {
			label = "no data"
		}
		entries[i] = LegendEntry{Bucket: b, Color: p.ColorFor(b), Label: label}
	}
	return entries
}
