package campaignapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/sift/internal/campaign"
)

// ingestPayload is the upstream annotator's batch contract. Items arrive
// already scored, with is_threat decided and campaign_id unset.
type ingestPayload struct {
	Items []*campaign.ThreatItem `json:"items"`
}

func (a *API) handleIngestItems(w http.ResponseWriter, r *http.Request) {
	var payload ingestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	stored, err := a.svc.Ingest(r.Context(), payload.Items)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to ingest items", "received", len(payload.Items))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"received": len(payload.Items),
		"stored":   stored,
	})
}

func (a *API) handleTriggerDetection(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.RunCycle(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "triggered detection cycle failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleUpdateMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.campaign.id", id))

	c, err := a.svc.UpdateMetrics(r.Context(), id)
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		a.logger.Error(r.Context(), err, "failed to update campaign metrics", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

type acknowledgePayload struct {
	Actor string `json:"actor"`
	Notes string `json:"notes"`
}

func (a *API) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload acknowledgePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if payload.Actor == "" {
		http.Error(w, `{"error":"actor is required"}`, http.StatusBadRequest)
		return
	}

	ack, err := a.svc.Acknowledge(r.Context(), id, payload.Actor, payload.Notes)
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		a.logger.Error(r.Context(), err, "failed to acknowledge campaign", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ack)
}

func (a *API) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := a.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		a.logger.Error(r.Context(), err, "failed to delete campaign", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
