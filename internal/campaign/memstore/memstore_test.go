package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/sift/internal/campaign"
)

func testItem(id string, postedAt time.Time) *campaign.ThreatItem {
	return &campaign.ThreatItem{
		ID:         id,
		Platform:   campaign.PlatformTwitter,
		Text:       "some threatening post",
		Author:     "@" + id,
		PostedAt:   postedAt,
		Engagement: map[string]int{"likes": 5},
		IsThreat:   true,
	}
}

func TestPutGetItem(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	it := testItem("a", now)
	if err := s.PutItem(ctx, it); err != nil {
		t.Fatalf("PutItem: %v", err)
	}

	got, ok, err := s.GetItem(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("GetItem: ok=%v err=%v", ok, err)
	}
	if got.ID != "a" || got.Author != "@a" {
		t.Errorf("got %+v", got)
	}

	// Returned copy must be isolated from the stored value.
	got.Engagement["likes"] = 999
	again, _, _ := s.GetItem(ctx, "a")
	if again.Engagement["likes"] != 5 {
		t.Error("mutation of returned item leaked into the store")
	}

	if _, ok, _ := s.GetItem(ctx, "missing"); ok {
		t.Error("GetItem(missing) = ok, want not found")
	}
}

func TestUnassignedItems_FiltersAndOrders(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newer := testItem("newer", now.Add(-time.Hour))
	older := testItem("older", now.Add(-2*time.Hour))
	stale := testItem("stale", now.Add(-48*time.Hour))
	bound := testItem("bound", now.Add(-time.Hour))
	bound.CampaignID = "cmp1"
	benign := testItem("benign", now.Add(-time.Hour))
	benign.IsThreat = false

	for _, it := range []*campaign.ThreatItem{newer, older, stale, bound, benign} {
		if err := s.PutItem(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.UnassignedItems(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("UnassignedItems: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
	// posted_at ascending.
	if got[0].ID != "older" || got[1].ID != "newer" {
		t.Errorf("order = [%s, %s], want [older, newer]", got[0].ID, got[1].ID)
	}
}

func TestAssignItem_SetIfNull(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.PutItem(ctx, testItem("a", now)); err != nil {
		t.Fatal(err)
	}

	ok, err := s.AssignItem(ctx, "a", "cmp1")
	if err != nil || !ok {
		t.Fatalf("first assign: ok=%v err=%v", ok, err)
	}

	// A second assignment must lose, even to the same campaign.
	ok, err = s.AssignItem(ctx, "a", "cmp2")
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if ok {
		t.Error("second assign won, want conflict")
	}

	it, _, _ := s.GetItem(ctx, "a")
	if it.CampaignID != "cmp1" {
		t.Errorf("campaign_id = %q, want cmp1", it.CampaignID)
	}

	ok, err = s.AssignItem(ctx, "missing", "cmp1")
	if err != nil || ok {
		t.Errorf("assign missing item: ok=%v err=%v, want false,nil", ok, err)
	}
}

func TestAssignItem_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.PutItem(ctx, testItem("contested", now)); err != nil {
		t.Fatal(err)
	}

	const racers = 32
	var wg sync.WaitGroup
	wins := make(chan string, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		campaignID := "cmp-" + string(rune('a'+i%26))
		go func() {
			defer wg.Done()
			ok, err := s.AssignItem(ctx, "contested", campaignID)
			if err != nil {
				t.Errorf("AssignItem: %v", err)
				return
			}
			if ok {
				wins <- campaignID
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("got %d winners, want exactly 1", len(winners))
	}

	it, _, _ := s.GetItem(ctx, "contested")
	if it.CampaignID != winners[0] {
		t.Errorf("campaign_id = %q, winner was %q", it.CampaignID, winners[0])
	}
}

func TestListCampaigns_FilterAndOrder(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	put := func(id string, status campaign.Status, level campaign.ThreatLevel, updated time.Time) {
		if err := s.CreateCampaign(ctx, &campaign.Campaign{
			ID: id, Status: status, ThreatLevel: level, LastUpdatedAt: updated,
		}); err != nil {
			t.Fatal(err)
		}
	}
	put("a", campaign.StatusActive, campaign.ThreatHigh, now.Add(-3*time.Hour))
	put("b", campaign.StatusActive, campaign.ThreatLow, now.Add(-1*time.Hour))
	put("c", campaign.StatusResolved, campaign.ThreatHigh, now.Add(-2*time.Hour))

	all, err := s.ListCampaigns(ctx, campaign.ListFilter{})
	if err != nil {
		t.Fatalf("ListCampaigns: %v", err)
	}
	if len(all) != 3 || all[0].ID != "b" || all[1].ID != "c" || all[2].ID != "a" {
		ids := make([]string, len(all))
		for i, c := range all {
			ids[i] = c.ID
		}
		t.Errorf("order = %v, want [b c a]", ids)
	}

	active, _ := s.ListCampaigns(ctx, campaign.ListFilter{Status: campaign.StatusActive})
	if len(active) != 2 {
		t.Errorf("active = %d, want 2", len(active))
	}

	high, _ := s.ListCampaigns(ctx, campaign.ListFilter{ThreatLevel: campaign.ThreatHigh})
	if len(high) != 2 {
		t.Errorf("high = %d, want 2", len(high))
	}

	both, _ := s.ListCampaigns(ctx, campaign.ListFilter{
		Status:      campaign.StatusActive,
		ThreatLevel: campaign.ThreatHigh,
	})
	if len(both) != 1 || both[0].ID != "a" {
		t.Errorf("combined filter = %v", both)
	}
}

func TestDeleteCampaign_UnbindsItemsAndDropsAcks(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.CreateCampaign(ctx, &campaign.Campaign{ID: "cmp1", Status: campaign.StatusActive}); err != nil {
		t.Fatal(err)
	}
	it := testItem("m1", now)
	it.CampaignID = "cmp1"
	if err := s.PutItem(ctx, it); err != nil {
		t.Fatal(err)
	}
	if err := s.PutAcknowledgement(ctx, &campaign.Acknowledgement{
		ID: "ack1", CampaignID: "cmp1", Actor: "oncall", CreatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteCampaign(ctx, "cmp1"); err != nil {
		t.Fatalf("DeleteCampaign: %v", err)
	}

	if _, ok, _ := s.GetCampaign(ctx, "cmp1"); ok {
		t.Error("campaign still present after delete")
	}
	got, _, _ := s.GetItem(ctx, "m1")
	if got.CampaignID != "" {
		t.Errorf("member campaign_id = %q, want unassigned", got.CampaignID)
	}

	// The item is detectable again.
	unassigned, _ := s.UnassignedItems(ctx, now.Add(-time.Hour))
	if len(unassigned) != 1 {
		t.Errorf("unassigned = %d, want 1", len(unassigned))
	}
}

func TestCampaignItems(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"c", "a", "b"} {
		it := testItem(id, now.Add(time.Duration(-i)*time.Hour))
		it.CampaignID = "cmp1"
		if err := s.PutItem(ctx, it); err != nil {
			t.Fatal(err)
		}
	}
	other := testItem("x", now)
	other.CampaignID = "cmp2"
	_ = s.PutItem(ctx, other)

	got, err := s.CampaignItems(ctx, "cmp1")
	if err != nil {
		t.Fatalf("CampaignItems: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d items, want 3", len(got))
	}
	// posted_at ascending: b (-2h), a (-1h), c (0).
	if got[0].ID != "b" || got[1].ID != "a" || got[2].ID != "c" {
		t.Errorf("order = [%s %s %s], want [b a c]", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestPutCampaign_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	c := &campaign.Campaign{ID: "cmp1", Status: campaign.StatusActive, Keywords: []string{"scam"}}
	if err := s.CreateCampaign(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, _, _ := s.GetCampaign(ctx, "cmp1")
	got.Keywords[0] = "mutated"
	got.Status = campaign.StatusResolved

	again, _, _ := s.GetCampaign(ctx, "cmp1")
	if again.Keywords[0] != "scam" || again.Status != campaign.StatusActive {
		t.Error("mutation of returned campaign leaked into the store")
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		id := "item-" + string(rune('a'+i))
		go func() {
			defer wg.Done()
			_ = s.PutItem(ctx, testItem(id, now))
		}()
		go func() {
			defer wg.Done()
			_, _ = s.UnassignedItems(ctx, now.Add(-time.Hour))
		}()
	}
	wg.Wait()

	got, err := s.UnassignedItems(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("UnassignedItems: %v", err)
	}
	if len(got) != 16 {
		t.Errorf("got %d items, want 16", len(got))
	}
}
