package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/sift/internal/textsim"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Params are the engine tunables. Zero values fall back to defaults in
// NewService.
type Params struct {
	SimilarityThreshold         float64
	MinPostsForCampaign         int
	TimeWindow                  time.Duration
	VelocityEscalationThreshold float64
	MonitoringAfter             time.Duration
	ResolvedAfter               time.Duration
	VocabularySize              int
}

// DefaultParams returns the stock engine tuning.
func DefaultParams() Params {
	return Params{
		SimilarityThreshold:         0.7,
		MinPostsForCampaign:         2,
		TimeWindow:                  24 * time.Hour,
		VelocityEscalationThreshold: 5.0,
		MonitoringAfter:             7 * 24 * time.Hour,
		ResolvedAfter:               30 * 24 * time.Hour,
		VocabularySize:              1000,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.SimilarityThreshold <= 0 {
		p.SimilarityThreshold = d.SimilarityThreshold
	}
	if p.MinPostsForCampaign <= 0 {
		p.MinPostsForCampaign = d.MinPostsForCampaign
	}
	if p.TimeWindow <= 0 {
		p.TimeWindow = d.TimeWindow
	}
	if p.VelocityEscalationThreshold <= 0 {
		p.VelocityEscalationThreshold = d.VelocityEscalationThreshold
	}
	if p.MonitoringAfter <= 0 {
		p.MonitoringAfter = d.MonitoringAfter
	}
	if p.ResolvedAfter <= 0 {
		p.ResolvedAfter = d.ResolvedAfter
	}
	if p.VocabularySize <= 0 {
		p.VocabularySize = d.VocabularySize
	}
	return p
}

// Service is the business boundary for campaign operations. Its periodic
// entry points (Detect, Match, SweepLifecycle, CheckEscalations) are
// idempotent and safe to re-run after a partial cycle: every unit of work is
// one group becoming one campaign, or one item joining one campaign, and
// item binding is a conditional set-if-null write.
type Service struct {
	store    Store
	grouper  Grouper
	notifier Notifier
	metrics  *Metrics
	logger   log.Logger
	params   Params

	now func() time.Time
}

// NewService creates a campaign service. notifier may be nil (escalations
// are then counted but not delivered).
func NewService(store Store, grouper Grouper, notifier Notifier, m *Metrics, logger log.Logger, params Params) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	if m == nil {
		m = NewMetrics(prometheus.NewRegistry())
	}
	return &Service{
		store:    store,
		grouper:  grouper,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		params:   params.withDefaults(),
		now:      time.Now,
	}
}

// DetectResult summarizes one detection cycle.
type DetectResult struct {
	Batch     int `json:"batch"`
	Groups    int `json:"groups"`
	Created   int `json:"created"`
	Assigned  int `json:"assigned"`
	Conflicts int `json:"conflicts"`
}

// MatchResult summarizes one matching cycle.
type MatchResult struct {
	Candidates int `json:"candidates"`
	Matched    int `json:"matched"`
	Conflicts  int `json:"conflicts"`
}

// CycleResult is the combined outcome of a detect+match cycle.
type CycleResult struct {
	Detect *DetectResult `json:"detect"`
	Match  *MatchResult  `json:"match"`
}

// SweepResult summarizes one lifecycle sweep.
type SweepResult struct {
	Checked      int `json:"checked"`
	ToMonitoring int `json:"to_monitoring"`
	ToResolved   int `json:"to_resolved"`
}

// EscalationResult summarizes one escalation check.
type EscalationResult struct {
	Checked   int `json:"checked"`
	Escalated int `json:"escalated"`
}

// Ingest stores a batch of already-scored threat items from the upstream
// annotator. Items arrive with campaign_id unset.
func (s *Service) Ingest(ctx context.Context, items []*ThreatItem) (int, error) {
	var stored int
	for _, it := range items {
		if it.ID == "" || it.Text == "" {
			continue
		}
		if err := s.store.PutItem(ctx, it); err != nil {
			return stored, fmt.Errorf("put item %s: %w", it.ID, err)
		}
		stored++
		s.metrics.ItemsIngested.Inc()
	}
	return stored, nil
}

// RunCycle runs detection followed by matching; growth of existing campaigns
// only considers items detection left unassigned.
func (s *Service) RunCycle(ctx context.Context) (*CycleResult, error) {
	dr, err := s.Detect(ctx)
	if err != nil {
		return &CycleResult{Detect: dr}, err
	}
	mr, err := s.Match(ctx)
	return &CycleResult{Detect: dr, Match: mr}, err
}

// Detect groups similar unassigned items within the lookback window and
// creates a campaign per group. Assignment conflicts exclude the item and are
// never surfaced as failures; persistence errors abort the cycle cleanly.
func (s *Service) Detect(ctx context.Context) (*DetectResult, error) {
	start := time.Now()
	now := s.now()

	items, err := s.store.UnassignedItems(ctx, now.Add(-s.params.TimeWindow))
	if err != nil {
		s.metrics.CyclesTotal.WithLabelValues("detect", "error").Inc()
		return nil, fmt.Errorf("list unassigned items: %w", err)
	}

	res := &DetectResult{Batch: len(items)}
	if len(items) < s.params.MinPostsForCampaign {
		s.finishCycle("detect", start)
		return res, nil
	}

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	groups := s.grouper.Group(texts)
	res.Groups = len(groups)
	s.metrics.GroupsFound.Observe(float64(len(groups)))

	for _, group := range groups {
		members := make([]*ThreatItem, len(group))
		for i, idx := range group {
			members[i] = items[idx]
		}
		created, assigned, conflicts, err := s.createCampaign(ctx, members, now)
		res.Assigned += assigned
		res.Conflicts += conflicts
		if err != nil {
			s.metrics.CyclesTotal.WithLabelValues("detect", "error").Inc()
			return res, err
		}
		if created {
			res.Created++
		}
	}

	s.finishCycle("detect", start)
	s.logger.Info(ctx, "detection cycle complete",
		"batch", res.Batch,
		"groups", res.Groups,
		"campaigns_created", res.Created,
		"items_assigned", res.Assigned,
		"conflicts", res.Conflicts,
	)
	return res, nil
}

// createCampaign persists a campaign synthesized from the group, then binds
// members with the set-if-null guard. The campaign row exists before any
// binding so an item can never reference a missing campaign. If conflicts
// leave fewer than the minimum bound members, the stillborn campaign is
// deleted again (which unbinds whatever did bind).
func (s *Service) createCampaign(ctx context.Context, members []*ThreatItem, now time.Time) (created bool, assigned, conflicts int, err error) {
	c := synthesize(ulid.Make().String(), members, now)

	if err := s.store.CreateCampaign(ctx, c); err != nil {
		return false, 0, 0, fmt.Errorf("create campaign: %w", err)
	}

	var bound []*ThreatItem
	for _, it := range members {
		ok, err := s.store.AssignItem(ctx, it.ID, c.ID)
		if err != nil {
			return false, len(bound), conflicts, fmt.Errorf("assign item %s: %w", it.ID, err)
		}
		if !ok {
			conflicts++
			s.metrics.AssignConflicts.Inc()
			continue
		}
		bound = append(bound, it)
	}

	if len(bound) < s.params.MinPostsForCampaign {
		s.metrics.StillbornCampaigns.Inc()
		if err := s.store.DeleteCampaign(ctx, c.ID); err != nil {
			return false, 0, conflicts, fmt.Errorf("roll back stillborn campaign %s: %w", c.ID, err)
		}
		return false, 0, conflicts, nil
	}

	if len(bound) != len(members) {
		c.MemberItemIDs = memberIDs(bound)
		mergeDerived(c, bound)
		recomputeMetrics(c, bound, now)
		if err := s.store.PutCampaign(ctx, c); err != nil {
			return false, len(bound), conflicts, fmt.Errorf("update campaign %s: %w", c.ID, err)
		}
	}

	s.metrics.CampaignsCreated.Inc()
	s.metrics.ItemsAssigned.WithLabelValues("detect").Add(float64(len(bound)))
	s.logger.Info(ctx, "campaign created",
		"campaign_id", c.ID,
		"name", c.Name,
		"members", len(bound),
		"threat_level", c.ThreatLevel,
	)
	return true, len(bound), conflicts, nil
}

// Match attaches remaining unassigned items to existing active campaigns via
// keyword/hashtag overlap. An item joins at most one campaign per cycle: the
// first match in the active list, ordered by last_updated_at descending.
func (s *Service) Match(ctx context.Context) (*MatchResult, error) {
	start := time.Now()
	now := s.now()

	campaigns, err := s.store.ListCampaigns(ctx, ListFilter{Status: StatusActive})
	if err != nil {
		s.metrics.CyclesTotal.WithLabelValues("match", "error").Inc()
		return nil, fmt.Errorf("list active campaigns: %w", err)
	}

	items, err := s.store.UnassignedItems(ctx, now.Add(-s.params.TimeWindow))
	if err != nil {
		s.metrics.CyclesTotal.WithLabelValues("match", "error").Inc()
		return nil, fmt.Errorf("list unassigned items: %w", err)
	}

	res := &MatchResult{Candidates: len(items)}
	if len(campaigns) == 0 || len(items) == 0 {
		s.finishCycle("match", start)
		return res, nil
	}

	for _, it := range items {
		normalized := textsim.Normalize(it.Text)
		tags := textsim.Hashtags(it.Text)

		for _, c := range campaigns {
			if !matchesCampaign(c, normalized, tags) {
				continue
			}

			ok, err := s.store.AssignItem(ctx, it.ID, c.ID)
			if err != nil {
				s.metrics.CyclesTotal.WithLabelValues("match", "error").Inc()
				return res, fmt.Errorf("assign item %s: %w", it.ID, err)
			}
			if !ok {
				// Claimed by a concurrent cycle; the item is no longer ours.
				res.Conflicts++
				s.metrics.AssignConflicts.Inc()
				break
			}

			c.MemberItemIDs = append(c.MemberItemIDs, it.ID)
			if err := s.refreshCampaign(ctx, c, now); err != nil {
				s.metrics.CyclesTotal.WithLabelValues("match", "error").Inc()
				return res, err
			}

			res.Matched++
			s.metrics.ItemsAssigned.WithLabelValues("match").Inc()
			break
		}
	}

	s.finishCycle("match", start)
	if res.Matched > 0 || res.Conflicts > 0 {
		s.logger.Info(ctx, "matching cycle complete",
			"candidates", res.Candidates,
			"matched", res.Matched,
			"conflicts", res.Conflicts,
		)
	}
	return res, nil
}

// refreshCampaign reloads the full membership and recomputes derived sets
// and metrics. Metrics recomputation for one campaign is serialized with the
// membership change that triggered it (single writer per campaign).
func (s *Service) refreshCampaign(ctx context.Context, c *Campaign, now time.Time) error {
	members, err := s.store.CampaignItems(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load members of %s: %w", c.ID, err)
	}
	mergeDerived(c, members)
	recomputeMetrics(c, members, now)
	if err := s.store.PutCampaign(ctx, c); err != nil {
		return fmt.Errorf("update campaign %s: %w", c.ID, err)
	}
	return nil
}

// SweepLifecycle ages campaigns: active and idle beyond the monitoring
// window moves to monitoring; active or monitoring idle beyond the
// resolution window moves to resolved. Transitions never touch
// last_updated_at, which tracks membership activity only.
func (s *Service) SweepLifecycle(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	now := s.now()

	campaigns, err := s.store.ListCampaigns(ctx, ListFilter{})
	if err != nil {
		s.metrics.CyclesTotal.WithLabelValues("lifecycle", "error").Inc()
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	res := &SweepResult{}
	for _, c := range campaigns {
		if c.Status == StatusResolved {
			continue
		}
		res.Checked++

		next := nextStatus(c.Status, now.Sub(c.LastUpdatedAt), s.params.MonitoringAfter, s.params.ResolvedAfter)
		if next == "" {
			continue
		}

		c.Status = next
		if err := s.store.PutCampaign(ctx, c); err != nil {
			s.metrics.CyclesTotal.WithLabelValues("lifecycle", "error").Inc()
			return res, fmt.Errorf("update campaign %s: %w", c.ID, err)
		}

		s.metrics.TransitionsTotal.WithLabelValues(string(next)).Inc()
		switch next {
		case StatusMonitoring:
			res.ToMonitoring++
		case StatusResolved:
			res.ToResolved++
		}
		s.logger.Info(ctx, "campaign transitioned",
			"campaign_id", c.ID,
			"status", next,
			"idle_hours", now.Sub(c.LastUpdatedAt).Hours(),
		)
	}

	s.finishCycle("lifecycle", start)
	return res, nil
}

// CheckEscalations recomputes velocity over each active campaign's
// trailing-window member subset and emits a notification when it exceeds the
// threshold. Pure side effect; campaign state is untouched.
func (s *Service) CheckEscalations(ctx context.Context) (*EscalationResult, error) {
	start := time.Now()
	now := s.now()

	campaigns, err := s.store.ListCampaigns(ctx, ListFilter{Status: StatusActive})
	if err != nil {
		s.metrics.CyclesTotal.WithLabelValues("escalation", "error").Inc()
		return nil, fmt.Errorf("list active campaigns: %w", err)
	}

	res := &EscalationResult{Checked: len(campaigns)}
	cutoff := now.Add(-s.params.TimeWindow)

	for _, c := range campaigns {
		members, err := s.store.CampaignItems(ctx, c.ID)
		if err != nil {
			s.metrics.CyclesTotal.WithLabelValues("escalation", "error").Inc()
			return res, fmt.Errorf("load members of %s: %w", c.ID, err)
		}

		var recent []*ThreatItem
		for _, it := range members {
			if it.PostedAt.After(cutoff) {
				recent = append(recent, it)
			}
		}
		if len(recent) == 0 {
			continue
		}

		v := velocityOf(recent)
		if v <= s.params.VelocityEscalationThreshold {
			continue
		}

		res.Escalated++
		s.metrics.EscalationsTotal.Inc()
		s.logger.Info(ctx, "campaign escalation",
			"campaign_id", c.ID,
			"name", c.Name,
			"recent_velocity", v,
			"recent_posts", len(recent),
		)

		if s.notifier == nil {
			continue
		}
		e := &Escalation{
			Campaign:       c,
			RecentPosts:    len(recent),
			RecentVelocity: v,
			Window:         s.params.TimeWindow,
			At:             now,
		}
		if err := s.notifier.Notify(ctx, e); err != nil {
			s.metrics.NotifyFailures.Inc()
			s.logger.Error(ctx, err, "escalation notification failed", "campaign_id", c.ID)
		}
	}

	s.finishCycle("escalation", start)
	return res, nil
}

// Get retrieves a campaign by ID.
func (s *Service) Get(ctx context.Context, id string) (*Campaign, bool, error) {
	return s.store.GetCampaign(ctx, id)
}

// List returns campaigns matching the filter, newest activity first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Campaign, error) {
	return s.store.ListCampaigns(ctx, f)
}

// Report builds the on-demand read model for one campaign: metadata
// snapshot, platform breakdown, and the hour-bucketed timeline.
func (s *Service) Report(ctx context.Context, id string) (*Report, error) {
	c, ok, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	members, err := s.store.CampaignItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load members of %s: %w", id, err)
	}

	return &Report{
		Campaign:          c,
		PlatformBreakdown: platformBreakdown(members),
		Timeline:          buildTimeline(members),
		GeneratedAt:       s.now(),
	}, nil
}

// Stats returns the aggregate campaign posture. Average velocity covers
// non-resolved campaigns; resolved campaigns are history, not current
// posture.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	campaigns, err := s.store.ListCampaigns(ctx, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	st := &Stats{Total: len(campaigns)}
	var velocitySum float64
	var velocityN int
	for _, c := range campaigns {
		if c.Status == StatusActive {
			st.Active++
		}
		switch c.ThreatLevel {
		case ThreatCritical:
			st.Critical++
		case ThreatHigh:
			st.High++
		}
		if !c.CreatedAt.Before(midnight) {
			st.CreatedToday++
		}
		if c.Status != StatusResolved {
			velocitySum += c.CampaignVelocity
			velocityN++
		}
	}
	if velocityN > 0 {
		st.AverageVelocity = velocitySum / float64(velocityN)
	}
	return st, nil
}

// UpdateMetrics recomputes one campaign's derived statistics on demand.
func (s *Service) UpdateMetrics(ctx context.Context, id string) (*Campaign, error) {
	c, ok, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	if err := s.refreshCampaign(ctx, c, s.now()); err != nil {
		return nil, err
	}
	return c, nil
}

// Acknowledge stores an operator marker on a campaign. It has no effect on
// campaign state.
func (s *Service) Acknowledge(ctx context.Context, id, actor, notes string) (*Acknowledgement, error) {
	_, ok, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	ack := &Acknowledgement{
		ID:         ulid.Make().String(),
		CampaignID: id,
		Actor:      actor,
		Notes:      notes,
		CreatedAt:  s.now(),
	}
	if err := s.store.PutAcknowledgement(ctx, ack); err != nil {
		return nil, fmt.Errorf("store acknowledgement: %w", err)
	}
	return ack, nil
}

// Delete removes a campaign and unbinds all member items so they become
// eligible for future detection.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, ok, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return fmt.Errorf("get campaign %s: %w", id, err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := s.store.DeleteCampaign(ctx, id); err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}
	s.metrics.CampaignsDeleted.Inc()
	s.logger.Info(ctx, "campaign deleted", "campaign_id", id)
	return nil
}

func (s *Service) finishCycle(cycle string, start time.Time) {
	s.metrics.CyclesTotal.WithLabelValues(cycle, "ok").Inc()
	s.metrics.CycleDuration.WithLabelValues(cycle).Observe(time.Since(start).Seconds())
}
