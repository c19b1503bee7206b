// Package memstore provides an in-memory implementation of campaign.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linnemanlabs/sift/internal/campaign"
)

// Store holds items and campaigns in memory. Suitable for dev/testing.
type Store struct {
	mu        sync.RWMutex
	items     map[string]*campaign.ThreatItem
	campaigns map[string]*campaign.Campaign
	acks      map[string]*campaign.Acknowledgement
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		items:     make(map[string]*campaign.ThreatItem),
		campaigns: make(map[string]*campaign.Campaign),
		acks:      make(map[string]*campaign.Acknowledgement),
	}
}

// PutItem stores a copy of the threat item.
func (s *Store) PutItem(_ context.Context, it *campaign.ThreatItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.ID] = copyItem(it)
	return nil
}

// GetItem retrieves a threat item by ID. Returns a copy.
func (s *Store) GetItem(_ context.Context, id string) (*campaign.ThreatItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, false, nil
	}
	return copyItem(it), true, nil
}

// UnassignedItems returns threat items with no campaign posted at or after
// since, in posted_at order (ties by ID) so detection input is stable.
func (s *Store) UnassignedItems(_ context.Context, since time.Time) ([]*campaign.ThreatItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*campaign.ThreatItem
	for _, it := range s.items {
		if !it.IsThreat || it.CampaignID != "" || it.PostedAt.Before(since) {
			continue
		}
		out = append(out, copyItem(it))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].PostedAt.Before(out[j].PostedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CampaignItems returns the items bound to a campaign, in posted_at order.
func (s *Store) CampaignItems(_ context.Context, campaignID string) ([]*campaign.ThreatItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*campaign.ThreatItem
	for _, it := range s.items {
		if it.CampaignID == campaignID {
			out = append(out, copyItem(it))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].PostedAt.Before(out[j].PostedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AssignItem sets the item's campaign id only if it is currently unset.
// Reports ok=false when the item is missing or already assigned.
func (s *Store) AssignItem(_ context.Context, itemID, campaignID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[itemID]
	if !ok || it.CampaignID != "" {
		return false, nil
	}
	it.CampaignID = campaignID
	return true, nil
}

// CreateCampaign stores a copy of a new campaign.
func (s *Store) CreateCampaign(_ context.Context, c *campaign.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = copyCampaign(c)
	return nil
}

// GetCampaign retrieves a campaign by ID. Returns a copy.
func (s *Store) GetCampaign(_ context.Context, id string) (*campaign.Campaign, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, false, nil
	}
	return copyCampaign(c), true, nil
}

// PutCampaign stores a copy of the campaign, overwriting the existing row.
func (s *Store) PutCampaign(_ context.Context, c *campaign.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = copyCampaign(c)
	return nil
}

// ListCampaigns returns campaigns matching the filter, ordered by
// last_updated_at descending (ties by ID for stable output).
func (s *Store) ListCampaigns(_ context.Context, f campaign.ListFilter) ([]*campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*campaign.Campaign
	for _, c := range s.campaigns {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.ThreatLevel != "" && c.ThreatLevel != f.ThreatLevel {
			continue
		}
		out = append(out, copyCampaign(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdatedAt.Equal(out[j].LastUpdatedAt) {
			return out[i].LastUpdatedAt.After(out[j].LastUpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteCampaign unbinds all member items and removes the campaign and its
// acknowledgements.
func (s *Store) DeleteCampaign(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if it.CampaignID == id {
			it.CampaignID = ""
		}
	}
	for ackID, ack := range s.acks {
		if ack.CampaignID == id {
			delete(s.acks, ackID)
		}
	}
	delete(s.campaigns, id)
	return nil
}

// PutAcknowledgement stores a copy of the operator marker.
func (s *Store) PutAcknowledgement(_ context.Context, ack *campaign.Acknowledgement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ack
	s.acks[ack.ID] = &cp
	return nil
}

func copyItem(it *campaign.ThreatItem) *campaign.ThreatItem {
	cp := *it
	if it.Engagement != nil {
		cp.Engagement = make(map[string]int, len(it.Engagement))
		for k, v := range it.Engagement {
			cp.Engagement[k] = v
		}
	}
	return &cp
}

func copyCampaign(c *campaign.Campaign) *campaign.Campaign {
	cp := *c
	cp.Keywords = append([]string(nil), c.Keywords...)
	cp.Hashtags = append([]string(nil), c.Hashtags...)
	cp.ParticipatingAccounts = append([]string(nil), c.ParticipatingAccounts...)
	cp.MemberItemIDs = append([]string(nil), c.MemberItemIDs...)
	return &cp
}
