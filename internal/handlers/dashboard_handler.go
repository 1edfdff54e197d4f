package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"marketBack/internal/services"
)

type DashboardHandler struct {
	Service *services.DashboardService
	Log     *zap.SugaredLogger
}

func (h *DashboardHandler) Provider(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.ProviderStats(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
