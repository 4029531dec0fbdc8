package domain

import "errors"

// SeverityBucket is an ordered risk category derived from a region's incident
// and fatality counts. The zero value is BucketNoData so that an absent
// aggregate never accidentally reads as low risk.
type SeverityBucket int

const (
	BucketNoData SeverityBucket = iota
	BucketLow
	BucketMedium
	BucketHigh
	BucketCritical
)

func (b SeverityBucket) String() string {
	switch b {
	case BucketLow:
		return "low"
	case BucketMedium:
		return "medium"
	case BucketHigh:
		return "high"
	case BucketCritical:
		return "critical"
	default:
		return "no_data"
	}
}

// MarshalText renders the bucket name, so frames serialize buckets as labels
// rather than bare integers.
func (b SeverityBucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// SeverityThresholds holds the classification bands. Values are configuration,
// not literals — call sites receive them from config (see internal/config).
// A bucket is reached when either the fatality or the incident count meets
// its threshold.
type SeverityThresholds struct {
	CriticalFatalities int `koanf:"critical_fatalities"`
	CriticalIncidents  int `koanf:"critical_incidents"`
	HighFatalities     int `koanf:"high_fatalities"`
	HighIncidents      int `koanf:"high_incidents"`
	MediumFatalities   int `koanf:"medium_fatalities"`
	MediumIncidents    int `koanf:"medium_incidents"`
}

// DefaultSeverityThresholds returns the operational defaults: critical at
// 20 fatalities or 20 incidents, high at 10/10, medium at 1 fatality or
// 5 incidents.
func DefaultSeverityThresholds() SeverityThresholds {
	return SeverityThresholds{
		CriticalFatalities: 20,
		CriticalIncidents:  20,
		HighFatalities:     10,
		HighIncidents:      10,
		MediumFatalities:   1,
		MediumIncidents:    5,
	}
}

// Validate rejects threshold sets whose bands are not monotonically
// increasing; classification with inverted bands would break severity
// monotonicity.
func (t SeverityThresholds) Validate() error {
	if t.MediumFatalities < 1 || t.MediumIncidents < 1 {
		return errors.New("severity: medium thresholds must be at least 1")
	}
	if t.HighFatalities < t.MediumFatalities || t.HighIncidents < t.MediumIncidents {
		return errors.New("severity: high thresholds must not be below medium")
	}
	if t.CriticalFatalities < t.HighFatalities || t.CriticalIncidents < t.HighIncidents {
		return errors.New("severity: critical thresholds must not be below high")
	}
	return nil
}

// Classify maps an aggregate to a severity bucket. Zero incidents yield
// BucketNoData regardless of thresholds: an empty region is unknown, not low.
// For fixed thresholds the function is monotone in both counts.
func Classify(t SeverityThresholds, incidents, fatalities int) SeverityBucket {
	if incidents == 0 {
		return BucketNoData
	}
	switch {
	case fatalities >= t.CriticalFatalities || incidents >= t.CriticalIncidents:
		return BucketCritical
	case fatalities >= t.HighFatalities || incidents >= t.HighIncidents:
		return BucketHigh
	case fatalities >= t.MediumFatalities || incidents >= t.MediumIncidents:
		return BucketMedium
	default:
		return BucketLow
	}
}
