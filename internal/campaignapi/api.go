// Package campaignapi exposes the campaign engine over HTTP: campaign
// queries and reports for the dashboard, the item ingest contract for the
// upstream annotator, and operator trigger endpoints.
package campaignapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sift/internal/campaign"
)

// CampaignService defines the business operations campaignapi needs.
type CampaignService interface {
	Ingest(ctx context.Context, items []*campaign.ThreatItem) (int, error)
	RunCycle(ctx context.Context) (*campaign.CycleResult, error)
	Get(ctx context.Context, id string) (*campaign.Campaign, bool, error)
	List(ctx context.Context, f campaign.ListFilter) ([]*campaign.Campaign, error)
	Stats(ctx context.Context) (*campaign.Stats, error)
	Report(ctx context.Context, id string) (*campaign.Report, error)
	UpdateMetrics(ctx context.Context, id string) (*campaign.Campaign, error)
	Acknowledge(ctx context.Context, id, actor, notes string) (*campaign.Acknowledgement, error)
	Delete(ctx context.Context, id string) error
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    CampaignService
}

// New creates a new API handler.
func New(logger log.Logger, svc CampaignService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("campaign service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router. adminMW guards the
// operator endpoints; nil means no guard (dev only).
func (a *API) RegisterRoutes(r chi.Router, adminMW func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/items", a.handleIngestItems)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", a.handleListCampaigns)
			r.Get("/stats", a.handleStats)
			r.Get("/{id}", a.handleGetCampaign)
			r.Get("/{id}/report", a.handleGetReport)
		})

		r.Group(func(r chi.Router) {
			if adminMW != nil {
				r.Use(adminMW)
			}
			r.Post("/admin/detect", a.handleTriggerDetection)
			r.Post("/admin/campaigns/{id}/metrics", a.handleUpdateMetrics)
			r.Post("/admin/campaigns/{id}/acknowledge", a.handleAcknowledge)
			r.Delete("/admin/campaigns/{id}", a.handleDeleteCampaign)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
