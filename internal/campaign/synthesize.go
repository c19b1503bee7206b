package campaign

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/sift/internal/textsim"
)

const (
	maxKeywords   = 10
	maxHashtags   = 10
	minKeywordLen = 4
)

// synthesize builds a new Campaign aggregate from a validated group of
// items. The caller owns persistence and member binding.
func synthesize(id string, members []*ThreatItem, now time.Time) *Campaign {
	keywords := deriveKeywords(members)
	hashtags := deriveHashtags(members)

	c := &Campaign{
		ID:                    id,
		ClusterType:           majorityClusterType(members),
		Status:                StatusActive,
		Keywords:              keywords,
		Hashtags:              hashtags,
		ParticipatingAccounts: deriveAccounts(members),
		MemberItemIDs:         memberIDs(members),
		FirstDetectedAt:       now,
		CreatedAt:             now,
		LastUpdatedAt:         now,
	}

	recomputeMetrics(c, members, now)

	c.Name = campaignName(hashtags, keywords, now)
	c.Description = campaignDescription(len(members), dominantPlatform(members), hashtags, keywords)
	return c
}

// deriveKeywords returns the most frequent alphabetic tokens longer than
// three characters that appear in more than one member, capped at
// maxKeywords. Stopwords never qualify.
func deriveKeywords(members []*ThreatItem) []string {
	counts := make(map[string]int)
	docFreq := make(map[string]int)

	for _, it := range members {
		seen := make(map[string]struct{})
		for _, tok := range textsim.Tokenize(textsim.Normalize(it.Text)) {
			if len(tok) < minKeywordLen || !isAlphabetic(tok) || textsim.IsStopword(tok) {
				continue
			}
			counts[tok]++
			seen[tok] = struct{}{}
		}
		for tok := range seen {
			docFreq[tok]++
		}
	}

	var shared []string
	for tok, df := range docFreq {
		if df > 1 {
			shared = append(shared, tok)
		}
	}
	sortByCount(shared, counts)

	if len(shared) > maxKeywords {
		shared = shared[:maxKeywords]
	}
	return shared
}

// deriveHashtags returns the most frequent hashtags across members, sigil
// retained and lowercased, capped at maxHashtags.
func deriveHashtags(members []*ThreatItem) []string {
	counts := make(map[string]int)
	for _, it := range members {
		for _, tag := range textsim.Hashtags(it.Text) {
			counts[tag]++
		}
	}

	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sortByCount(tags, counts)

	if len(tags) > maxHashtags {
		tags = tags[:maxHashtags]
	}
	return tags
}

// deriveAccounts returns the de-duplicated author handles, sorted.
func deriveAccounts(members []*ThreatItem) []string {
	seen := make(map[string]struct{}, len(members))
	var accounts []string
	for _, it := range members {
		if it.Author == "" {
			continue
		}
		if _, ok := seen[it.Author]; ok {
			continue
		}
		seen[it.Author] = struct{}{}
		accounts = append(accounts, it.Author)
	}
	sort.Strings(accounts)
	return accounts
}

// majorityClusterType is the most common member value. Ties go to
// competitor, the conservative default.
func majorityClusterType(members []*ThreatItem) ClusterType {
	var own, competitor int
	for _, it := range members {
		if it.ClusterType == ClusterOwn {
			own++
		} else {
			competitor++
		}
	}
	if own > competitor {
		return ClusterOwn
	}
	return ClusterCompetitor
}

func dominantPlatform(members []*ThreatItem) Platform {
	counts := make(map[Platform]int)
	for _, it := range members {
		counts[it.Platform]++
	}
	var best Platform
	for p, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && p < best) {
			best = p
		}
	}
	return best
}

func campaignName(hashtags, keywords []string, now time.Time) string {
	if len(hashtags) > 0 {
		return hashtags[0] + " Campaign"
	}
	if len(keywords) > 0 {
		return keywords[0] + " Threat Campaign"
	}
	return "Threat Campaign " + now.UTC().Format("2006-01-02 15:04")
}

func campaignDescription(posts int, platform Platform, hashtags, keywords []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Coordinated threat activity across %d posts, primarily on %s.", posts, platform)
	if len(hashtags) > 0 {
		fmt.Fprintf(&b, " Top hashtags: %s.", strings.Join(topN(hashtags, 3), ", "))
	}
	if len(keywords) > 0 {
		fmt.Fprintf(&b, " Top keywords: %s.", strings.Join(topN(keywords, 3), ", "))
	}
	return b.String()
}

func memberIDs(members []*ThreatItem) []string {
	ids := make([]string, len(members))
	for i, it := range members {
		ids[i] = it.ID
	}
	return ids
}

// sortByCount orders tokens by descending count, ties alphabetically, so
// derivation is deterministic.
func sortByCount(tokens []string, counts map[string]int) {
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
}

func topN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
