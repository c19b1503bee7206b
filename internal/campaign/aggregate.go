package campaign

import "time"

// Threat level rule table thresholds, evaluated in order by threatLevelFor.
const (
	criticalVelocity   = 10.0
	criticalSentiment  = -0.7
	criticalEngagement = 5000

	highVelocity   = 5.0
	highSentiment  = -0.5
	highEngagement = 2000

	mediumPosts     = 5
	mediumSentiment = -0.3
)

// threatLevelFor classifies severity from derived metrics. The first
// matching rule wins.
func threatLevelFor(velocity, avgSentiment float64, totalEngagement, totalPosts int) ThreatLevel {
	switch {
	case velocity > criticalVelocity && avgSentiment < criticalSentiment && totalEngagement > criticalEngagement:
		return ThreatCritical
	case velocity > highVelocity && avgSentiment < highSentiment && totalEngagement > highEngagement:
		return ThreatHigh
	case totalPosts > mediumPosts && avgSentiment < mediumSentiment:
		return ThreatMedium
	default:
		return ThreatLow
	}
}

// recomputeMetrics recomputes the campaign's derived statistics from its
// full current membership and stamps last_updated_at. Velocity is computed
// over the span of the whole member set, not just new arrivals.
func recomputeMetrics(c *Campaign, members []*ThreatItem, now time.Time) {
	c.TotalPosts = len(members)
	c.TotalEngagement = sumEngagement(members)
	c.AverageSentiment = meanSentiment(members)
	c.CampaignVelocity = velocityOf(members)
	c.ReachEstimate = c.TotalEngagement
	c.ThreatLevel = threatLevelFor(c.CampaignVelocity, c.AverageSentiment, c.TotalEngagement, c.TotalPosts)
	c.LastUpdatedAt = now
}

// mergeDerived re-derives the keyword, hashtag, and account sets from the
// full membership, unioned with the existing sets so they never shrink.
func mergeDerived(c *Campaign, members []*ThreatItem) {
	c.Keywords = unionPreserving(c.Keywords, deriveKeywords(members))
	c.Hashtags = unionPreserving(c.Hashtags, deriveHashtags(members))
	c.ParticipatingAccounts = unionPreserving(c.ParticipatingAccounts, deriveAccounts(members))
}

// velocityOf is items per hour over the members' posting span, with the
// span floored at one hour.
func velocityOf(members []*ThreatItem) float64 {
	if len(members) == 0 {
		return 0
	}
	earliest, latest := postingSpan(members)
	spanHours := latest.Sub(earliest).Hours()
	if spanHours < 1 {
		spanHours = 1
	}
	return float64(len(members)) / spanHours
}

func postingSpan(members []*ThreatItem) (earliest, latest time.Time) {
	earliest, latest = members[0].PostedAt, members[0].PostedAt
	for _, it := range members[1:] {
		if it.PostedAt.Before(earliest) {
			earliest = it.PostedAt
		}
		if it.PostedAt.After(latest) {
			latest = it.PostedAt
		}
	}
	return earliest, latest
}

func sumEngagement(members []*ThreatItem) int {
	var total int
	for _, it := range members {
		total += it.TotalEngagement()
	}
	return total
}

func meanSentiment(members []*ThreatItem) float64 {
	if len(members) == 0 {
		return 0
	}
	var sum float64
	for _, it := range members {
		sum += it.SentimentScore
	}
	return sum / float64(len(members))
}

// unionPreserving keeps the existing entries in place and appends the new
// ones that are not present yet.
func unionPreserving(existing, derived []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	out := existing
	for _, v := range derived {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
