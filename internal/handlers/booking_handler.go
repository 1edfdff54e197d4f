package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"marketBack/internal/geo"
	"marketBack/internal/models"
	"marketBack/internal/services"
)

type BookingHandler struct {
	Service *services.BookingService
	Log     *zap.SugaredLogger
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CreateBookingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	b, err := h.Service.Create(r.Context(), SessionFrom(r.Context()), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	b, err := h.Service.Get(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListForCustomer(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *BookingHandler) ForProvider(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListForProvider(r.Context(), SessionFrom(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *BookingHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Service.Accept)
}

func (h *BookingHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Service.Decline)
}

type respondFunc func(ctx context.Context, session models.Session, id int64) (models.Booking, error)

func (h *BookingHandler) respond(w http.ResponseWriter, r *http.Request, fn respondFunc) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	b, err := fn(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type locationResponse struct {
	Booking       models.Booking `json:"booking"`
	LocationKnown bool           `json:"location_known"`
	Distance      string         `json:"distance"`
}

// CaptureLocation stores the customer's device fix for a booking.
func (h *BookingHandler) CaptureLocation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	var fix geo.Fix
	if err := decodeJSON(w, r, &fix); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	b, err := h.Service.CaptureLocation(r.Context(), SessionFrom(r.Context()), id, fix)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{
		Booking:       b,
		LocationKnown: b.CustomerLatitude != nil,
		Distance:      geo.FormatDistance(b.DistanceKm),
	})
}

func (h *BookingHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	t, err := h.Service.Tracking(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
