package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"marketBack/internal/models"
	"marketBack/internal/services"
)

type ReviewHandler struct {
	Service *services.ReviewService
	Log     *zap.SugaredLogger
}

type reviewResponse struct {
	Review models.Review        `json:"review"`
	Rating models.RatingSummary `json:"service_rating"`
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CreateReviewInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	rev, summary, err := h.Service.Submit(r.Context(), SessionFrom(r.Context()), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reviewResponse{Review: rev, Rating: summary})
}
