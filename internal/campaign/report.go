package campaign

import "time"

// buildTimeline buckets member posts by hour from the earliest to the latest
// posted_at, inclusive. Hours with no posts appear with a zero count so the
// dashboard can render gaps.
func buildTimeline(members []*ThreatItem) []TimelineBucket {
	if len(members) == 0 {
		return nil
	}

	earliest, latest := postingSpan(members)
	start := earliest.UTC().Truncate(time.Hour)
	end := latest.UTC().Truncate(time.Hour)

	counts := make(map[time.Time]int, len(members))
	for _, it := range members {
		counts[it.PostedAt.UTC().Truncate(time.Hour)]++
	}

	var timeline []TimelineBucket
	for hour := start; !hour.After(end); hour = hour.Add(time.Hour) {
		timeline = append(timeline, TimelineBucket{Hour: hour, Posts: counts[hour]})
	}
	return timeline
}

// platformBreakdown counts members by source platform.
func platformBreakdown(members []*ThreatItem) map[Platform]int {
	breakdown := make(map[Platform]int)
	for _, it := range members {
		breakdown[it.Platform]++
	}
	return breakdown
}
