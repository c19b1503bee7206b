// Package pgstore provides a PostgreSQL implementation of campaign.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/campaign"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/campaign/pgstore")

//go:embed schema.sql
var schema string

// Store persists threat items and campaigns in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store on the given pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const itemColumns = `id, platform, content, author, posted_at, engagement,
	sentiment_score, is_threat, cluster_type, campaign_id`

const campaignColumns = `id, name, description, cluster_type, threat_level, status,
	keywords, hashtags, participating_accounts, member_item_ids,
	total_posts, total_engagement, average_sentiment, campaign_velocity, reach_estimate,
	first_detected_at, created_at, last_updated_at`

// PutItem inserts or updates a threat item. The campaign binding is not
// touched here; AssignItem owns that column.
func (s *Store) PutItem(ctx context.Context, it *campaign.ThreatItem) error {
	ctx, span := s.startSpan(ctx, "pgstore.PutItem", "UPSERT")
	defer span.End()

	engagementJSON, err := json.Marshal(it.Engagement)
	if err != nil {
		return spanErr(span, fmt.Errorf("marshal engagement: %w", err))
	}

	query := `INSERT INTO threat_items (
		id, platform, content, author, posted_at, engagement,
		sentiment_score, is_threat, cluster_type
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (id) DO UPDATE SET
		platform        = EXCLUDED.platform,
		content         = EXCLUDED.content,
		author          = EXCLUDED.author,
		posted_at       = EXCLUDED.posted_at,
		engagement      = EXCLUDED.engagement,
		sentiment_score = EXCLUDED.sentiment_score,
		is_threat       = EXCLUDED.is_threat,
		cluster_type    = EXCLUDED.cluster_type`

	_, err = s.pool.Exec(ctx, query,
		it.ID, string(it.Platform), it.Text, it.Author, it.PostedAt, engagementJSON,
		it.SentimentScore, it.IsThreat, string(it.ClusterType),
	)
	if err != nil {
		return spanErr(span, fmt.Errorf("upsert item: %w", err))
	}
	return nil
}

// GetItem retrieves a threat item by ID.
func (s *Store) GetItem(ctx context.Context, id string) (*campaign.ThreatItem, bool, error) {
	ctx, span := s.startSpan(ctx, "pgstore.GetItem", "SELECT")
	defer span.End()

	query := `SELECT ` + itemColumns + ` FROM threat_items WHERE id = $1`
	it, err := scanItemRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, false, spanErr(span, err)
	}
	if it == nil {
		return nil, false, nil
	}
	return it, true, nil
}

// UnassignedItems returns unassigned threat-flagged items posted at or after
// since, oldest first so detection input order is stable.
func (s *Store) UnassignedItems(ctx context.Context, since time.Time) ([]*campaign.ThreatItem, error) {
	ctx, span := s.startSpan(ctx, "pgstore.UnassignedItems", "SELECT")
	defer span.End()

	query := `SELECT ` + itemColumns + ` FROM threat_items
		WHERE campaign_id IS NULL AND is_threat AND posted_at >= $1
		ORDER BY posted_at, id`
	items, err := s.queryItems(ctx, query, since)
	if err != nil {
		return nil, spanErr(span, err)
	}
	return items, nil
}

// CampaignItems returns the items bound to a campaign, oldest first.
func (s *Store) CampaignItems(ctx context.Context, campaignID string) ([]*campaign.ThreatItem, error) {
	ctx, span := s.startSpan(ctx, "pgstore.CampaignItems", "SELECT")
	defer span.End()

	query := `SELECT ` + itemColumns + ` FROM threat_items
		WHERE campaign_id = $1
		ORDER BY posted_at, id`
	items, err := s.queryItems(ctx, query, campaignID)
	if err != nil {
		return nil, spanErr(span, err)
	}
	return items, nil
}

// AssignItem binds an item to a campaign only if it is currently unbound.
// The conditional write is the engine's single serialization point: two
// overlapping cycles cannot double-assign the same item.
func (s *Store) AssignItem(ctx context.Context, itemID, campaignID string) (bool, error) {
	ctx, span := s.startSpan(ctx, "pgstore.AssignItem", "UPDATE")
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE threat_items SET campaign_id = $2 WHERE id = $1 AND campaign_id IS NULL`,
		itemID, campaignID,
	)
	if err != nil {
		return false, spanErr(span, fmt.Errorf("assign item: %w", err))
	}
	return tag.RowsAffected() == 1, nil
}

// CreateCampaign inserts a new campaign row.
func (s *Store) CreateCampaign(ctx context.Context, c *campaign.Campaign) error {
	ctx, span := s.startSpan(ctx, "pgstore.CreateCampaign", "INSERT")
	defer span.End()

	query := `INSERT INTO campaigns (` + campaignColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

	_, err := s.pool.Exec(ctx, query, campaignArgs(c)...)
	if err != nil {
		return spanErr(span, fmt.Errorf("insert campaign: %w", err))
	}
	return nil
}

// GetCampaign retrieves a campaign by ID.
func (s *Store) GetCampaign(ctx context.Context, id string) (*campaign.Campaign, bool, error) {
	ctx, span := s.startSpan(ctx, "pgstore.GetCampaign", "SELECT")
	defer span.End()

	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	c, err := scanCampaignRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, false, spanErr(span, err)
	}
	if c == nil {
		return nil, false, nil
	}
	return c, true, nil
}

// PutCampaign updates an existing campaign row.
func (s *Store) PutCampaign(ctx context.Context, c *campaign.Campaign) error {
	ctx, span := s.startSpan(ctx, "pgstore.PutCampaign", "UPDATE")
	defer span.End()

	query := `UPDATE campaigns SET
		name = $2, description = $3, cluster_type = $4, threat_level = $5, status = $6,
		keywords = $7, hashtags = $8, participating_accounts = $9, member_item_ids = $10,
		total_posts = $11, total_engagement = $12, average_sentiment = $13,
		campaign_velocity = $14, reach_estimate = $15,
		first_detected_at = $16, created_at = $17, last_updated_at = $18
	WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, campaignArgs(c)...)
	if err != nil {
		return spanErr(span, fmt.Errorf("update campaign: %w", err))
	}
	return nil
}

// ListCampaigns returns campaigns matching the filter, ordered by
// last_updated_at descending.
func (s *Store) ListCampaigns(ctx context.Context, f campaign.ListFilter) ([]*campaign.Campaign, error) {
	ctx, span := s.startSpan(ctx, "pgstore.ListCampaigns", "SELECT")
	defer span.End()

	var conds []string
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.ThreatLevel != "" {
		args = append(args, string(f.ThreatLevel))
		conds = append(conds, fmt.Sprintf("threat_level = $%d", len(args)))
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY last_updated_at DESC, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("query campaigns: %w", err))
	}
	defer rows.Close()

	var out []*campaign.Campaign
	for rows.Next() {
		c, err := scanCampaignRow(rows)
		if err != nil {
			return nil, spanErr(span, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, fmt.Errorf("iterate campaigns: %w", err))
	}
	return out, nil
}

// DeleteCampaign removes a campaign. Member items are unbound and
// acknowledgements removed by the schema's referential actions, atomically
// with the row delete.
func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "pgstore.DeleteCampaign", "DELETE")
	defer span.End()

	_, err := s.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return spanErr(span, fmt.Errorf("delete campaign: %w", err))
	}
	return nil
}

// PutAcknowledgement inserts an operator marker.
func (s *Store) PutAcknowledgement(ctx context.Context, ack *campaign.Acknowledgement) error {
	ctx, span := s.startSpan(ctx, "pgstore.PutAcknowledgement", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO campaign_acks (id, campaign_id, actor, notes, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		ack.ID, ack.CampaignID, ack.Actor, ack.Notes, ack.CreatedAt,
	)
	if err != nil {
		return spanErr(span, fmt.Errorf("insert acknowledgement: %w", err))
	}
	return nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*campaign.ThreatItem, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var out []*campaign.ThreatItem
	for rows.Next() {
		it, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}

func (s *Store) startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func campaignArgs(c *campaign.Campaign) []any {
	return []any{
		c.ID, c.Name, c.Description, string(c.ClusterType), string(c.ThreatLevel), string(c.Status),
		c.Keywords, c.Hashtags, c.ParticipatingAccounts, c.MemberItemIDs,
		c.TotalPosts, c.TotalEngagement, c.AverageSentiment, c.CampaignVelocity, c.ReachEstimate,
		c.FirstDetectedAt, c.CreatedAt, c.LastUpdatedAt,
	}
}

// scanItemRow scans a single row into a ThreatItem. Returns (nil, nil) when
// no row is found.
func scanItemRow(row pgx.Row) (*campaign.ThreatItem, error) {
	var (
		it             campaign.ThreatItem
		platform       string
		clusterType    string
		engagementJSON []byte
		campaignID     *string
	)

	err := row.Scan(
		&it.ID, &platform, &it.Text, &it.Author, &it.PostedAt, &engagementJSON,
		&it.SentimentScore, &it.IsThreat, &clusterType, &campaignID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}

	it.Platform = campaign.Platform(platform)
	it.ClusterType = campaign.ClusterType(clusterType)
	if campaignID != nil {
		it.CampaignID = *campaignID
	}
	if len(engagementJSON) > 0 {
		if err := json.Unmarshal(engagementJSON, &it.Engagement); err != nil {
			return nil, fmt.Errorf("unmarshal engagement: %w", err)
		}
	}
	return &it, nil
}

// scanCampaignRow scans a single row into a Campaign. Returns (nil, nil)
// when no row is found.
func scanCampaignRow(row pgx.Row) (*campaign.Campaign, error) {
	var (
		c           campaign.Campaign
		clusterType string
		threatLevel string
		status      string
	)

	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &clusterType, &threatLevel, &status,
		&c.Keywords, &c.Hashtags, &c.ParticipatingAccounts, &c.MemberItemIDs,
		&c.TotalPosts, &c.TotalEngagement, &c.AverageSentiment, &c.CampaignVelocity, &c.ReachEstimate,
		&c.FirstDetectedAt, &c.CreatedAt, &c.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	c.ClusterType = campaign.ClusterType(clusterType)
	c.ThreatLevel = campaign.ThreatLevel(threatLevel)
	c.Status = campaign.Status(status)
	return &c, nil
}
