package campaign

import (
	"errors"
	"time"
)

// ErrNotFound is returned by on-demand operations that address a campaign
// id that does not exist in the store.
var ErrNotFound = errors.New("campaign not found")

// Status tracks where a campaign is in its lifecycle. Transitions only move
// forward: active -> monitoring -> resolved.
type Status string

const (
	// StatusActive means the campaign is receiving new members.
	StatusActive Status = "active"

	// StatusMonitoring means no new activity for the monitoring window.
	StatusMonitoring Status = "monitoring"

	// StatusResolved means the campaign went quiet for the resolution window.
	// Resolved campaigns remain queryable; nothing is deleted automatically.
	StatusResolved Status = "resolved"
)

// ThreatLevel classifies campaign severity, derived from the metric rule table.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// ClusterType says whose narrative a piece of content belongs to, inherited
// from the upstream matcher.
type ClusterType string

const (
	ClusterOwn        ClusterType = "own"
	ClusterCompetitor ClusterType = "competitor"
)

// Platform identifies the source network of a threat item.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformNews      Platform = "news"
)

// ThreatItem is a single piece of monitored content already flagged as
// threatening by the upstream annotator. Only CampaignID is mutated here,
// and only once (null -> a value, never reassigned).
type ThreatItem struct {
	ID             string         `json:"id"`
	Platform       Platform       `json:"platform"`
	Text           string         `json:"text"`
	Author         string         `json:"author"`
	PostedAt       time.Time      `json:"posted_at"`
	Engagement     map[string]int `json:"engagement,omitempty"` // likes/shares/comments/views
	SentimentScore float64        `json:"sentiment_score"`      // -1..1
	IsThreat       bool           `json:"is_threat"`
	ClusterType    ClusterType    `json:"cluster_type"`
	CampaignID     string         `json:"campaign_id,omitempty"` // empty = unassigned
}

// TotalEngagement sums the item's engagement counters.
func (it *ThreatItem) TotalEngagement() int {
	var total int
	for _, v := range it.Engagement {
		total += v
	}
	return total
}

// Campaign is a detected cluster of related threat items believed to
// represent a coordinated or thematically linked wave of activity.
type Campaign struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ClusterType ClusterType `json:"cluster_type"`
	ThreatLevel ThreatLevel `json:"threat_level"`
	Status      Status      `json:"status"`

	// Keywords and Hashtags are re-derived from the full membership on every
	// change and never shrink.
	Keywords              []string `json:"keywords"`
	Hashtags              []string `json:"hashtags"`
	ParticipatingAccounts []string `json:"participating_accounts"`

	// MemberItemIDs is append-only and duplicate-free.
	MemberItemIDs []string `json:"member_item_ids"`

	TotalPosts       int     `json:"total_posts"`
	TotalEngagement  int     `json:"total_engagement"`
	AverageSentiment float64 `json:"average_sentiment"`
	CampaignVelocity float64 `json:"campaign_velocity"` // items/hour
	ReachEstimate    int     `json:"reach_estimate"`

	FirstDetectedAt time.Time `json:"first_detected_at"`
	CreatedAt       time.Time `json:"created_at"`
	LastUpdatedAt   time.Time `json:"last_updated_at"`
}

// Acknowledgement is an operator marker on a campaign. Storing one has no
// effect on campaign state.
type Acknowledgement struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Actor      string    `json:"actor"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Report is the on-demand read model for a single campaign: metadata
// snapshot, platform breakdown, and an hour-bucketed posting timeline.
type Report struct {
	Campaign          *Campaign        `json:"campaign"`
	PlatformBreakdown map[Platform]int `json:"platform_breakdown"`
	Timeline          []TimelineBucket `json:"timeline"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// TimelineBucket is one hour of campaign activity. Empty hours between the
// earliest and latest member post are included with a zero count.
type TimelineBucket struct {
	Hour  time.Time `json:"hour"`
	Posts int       `json:"posts"`
}

// Stats is the aggregate campaign posture for the dashboard.
type Stats struct {
	Total           int     `json:"total"`
	Active          int     `json:"active"`
	Critical        int     `json:"critical"`
	High            int     `json:"high"`
	CreatedToday    int     `json:"created_today"`
	AverageVelocity float64 `json:"average_velocity"`
}
