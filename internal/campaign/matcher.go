package campaign

import "strings"

// Matcher thresholds: an item joins a campaign when at least two campaign
// keywords occur in its normalized text, or it shares at least one hashtag.
const (
	minKeywordOverlap = 2
	minHashtagOverlap = 1
)

// matchesCampaign reports whether an unassigned item belongs in the
// campaign, given the item's normalized text and extracted hashtags.
func matchesCampaign(c *Campaign, normalizedText string, itemTags []string) bool {
	if keywordOverlap(c.Keywords, normalizedText) >= minKeywordOverlap {
		return true
	}
	return hashtagOverlap(c.Hashtags, itemTags) >= minHashtagOverlap
}

// keywordOverlap counts campaign keywords found as substrings of the
// normalized item text.
func keywordOverlap(keywords []string, normalizedText string) int {
	var n int
	for _, kw := range keywords {
		if strings.Contains(normalizedText, kw) {
			n++
		}
	}
	return n
}

// hashtagOverlap is the intersection size of the item's hashtags and the
// campaign's hashtag set.
func hashtagOverlap(campaignTags, itemTags []string) int {
	if len(campaignTags) == 0 || len(itemTags) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(campaignTags))
	for _, tag := range campaignTags {
		set[tag] = struct{}{}
	}
	var n int
	for _, tag := range itemTags {
		if _, ok := set[tag]; ok {
			n++
		}
	}
	return n
}
