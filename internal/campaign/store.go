package campaign

import (
	"context"
	"time"
)

// ListFilter narrows campaign listings. Zero values mean "any".
type ListFilter struct {
	Status      Status
	ThreatLevel ThreatLevel
}

// Store is the persistence interface for threat items and campaigns.
//
// AssignItem is the single serialization point of the engine: it must set the
// item's campaign id only if it is currently unset, and report a concurrent
// assignment as ok=false rather than an error. Everything else the engine
// does is safe to re-run.
type Store interface {
	// Items.
	PutItem(ctx context.Context, item *ThreatItem) error
	GetItem(ctx context.Context, id string) (*ThreatItem, bool, error)
	UnassignedItems(ctx context.Context, since time.Time) ([]*ThreatItem, error)
	CampaignItems(ctx context.Context, campaignID string) ([]*ThreatItem, error)
	AssignItem(ctx context.Context, itemID, campaignID string) (ok bool, err error)

	// Campaigns. ListCampaigns returns campaigns ordered by last_updated_at
	// descending. DeleteCampaign unbinds all member items before removing
	// the campaign row.
	CreateCampaign(ctx context.Context, c *Campaign) error
	GetCampaign(ctx context.Context, id string) (*Campaign, bool, error)
	PutCampaign(ctx context.Context, c *Campaign) error
	ListCampaigns(ctx context.Context, f ListFilter) ([]*Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error

	// Operator markers.
	PutAcknowledgement(ctx context.Context, ack *Acknowledgement) error
}

// Grouper is the clustering strategy used by detection: given the raw texts
// of one batch, it returns groups of indexes into that batch. Implementations
// must be deterministic for identical input and must never fail the cycle;
// degenerate input yields no groups.
type Grouper interface {
	Group(texts []string) [][]int
}

// Escalation is a notification-only signal that a campaign's recent velocity
// crossed the configured threshold. It does not change campaign state.
type Escalation struct {
	Campaign       *Campaign
	RecentPosts    int
	RecentVelocity float64
	Window         time.Duration
	At             time.Time
}

// Notifier delivers escalation signals as a side effect.
type Notifier interface {
	Notify(ctx context.Context, e *Escalation) error
}
