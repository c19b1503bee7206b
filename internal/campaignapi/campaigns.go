package campaignapi

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/sift/internal/campaign"
)

func (a *API) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	f := campaign.ListFilter{
		Status:      campaign.Status(r.URL.Query().Get("status")),
		ThreatLevel: campaign.ThreatLevel(r.URL.Query().Get("threat_level")),
	}

	campaigns, err := a.svc.List(r.Context(), f)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list campaigns")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if campaigns == nil {
		campaigns = []*campaign.Campaign{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

func (a *API) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.campaign.id", id))

	c, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get campaign", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("sift.campaign.status", string(c.Status)))
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.campaign.id", id))

	rep, err := a.svc.Report(r.Context(), id)
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		a.logger.Error(r.Context(), err, "failed to build report", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.Stats(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to compute stats")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
