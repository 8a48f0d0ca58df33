// Package staleness classifies timestamped records into the four freshness
// buckets shown on the row-count summary cards.
package staleness

import (
	"math"
	"time"
)

// Bucket identifies one of the four freshness ranges.
type Bucket int

const (
	Under24h Bucket = iota // <= 24 hours
	Under72h               // 24h - 72h
	Under7d                // 3 - 7 days
	Over7d                 // > 7 days
)

// Threshold boundaries in whole minutes.
const (
	MinutesPerDay = 1440
	Minutes3Days  = 4320
	Minutes7Days  = 10080
)

// MaxStaleness is returned for records with no timestamp so that they sort
// into the oldest bucket.
const MaxStaleness = math.MaxInt64

// String returns the display label for a bucket.
func (b Bucket) String() string {
	switch b {
	case Under24h:
		return "<24h"
	case Under72h:
		return "24h-72h"
	case Under7d:
		return "3d-7d"
	default:
		return ">7d"
	}
}

// Difference returns the whole minutes elapsed between now and ts, floored.
// A nil or zero ts yields MaxStaleness.
func Difference(now time.Time, ts *time.Time) int64 {
	if ts == nil || ts.IsZero() {
		return MaxStaleness
	}
	return int64(math.Floor(now.Sub(*ts).Minutes()))
}

// Classify maps a staleness in minutes to exactly one bucket.
func Classify(minutes int64) Bucket {
	switch {
	case minutes <= MinutesPerDay:
		return Under24h
	case minutes <= Minutes3Days:
		return Under72h
	case minutes <= Minutes7Days:
		return Under7d
	default:
		return Over7d
	}
}

// Counts aggregates the per-bucket histogram for a set of timestamps,
// indexed by Bucket. Nil entries count toward Over7d.
func Counts(now time.Time, timestamps []*time.Time) [4]int {
	var counts [4]int
	for _, ts := range timestamps {
		counts[Classify(Difference(now, ts))]++
	}
	return counts
}
