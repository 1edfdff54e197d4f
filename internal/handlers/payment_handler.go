package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"marketBack/internal/models"
	"marketBack/internal/services"
)

type PaymentHandler struct {
	Service *services.PaymentService
	Log     *zap.SugaredLogger
}

type createOrderRequest struct {
	BookingID int64 `json:"booking_id" validate:"required,gt=0"`
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	order, err := h.Service.CreateOrder(r.Context(), SessionFrom(r.Context()), req.BookingID)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

type verifyResponse struct {
	Message string         `json:"message"`
	Booking models.Booking `json:"booking"`
}

// Verify confirms a checkout callback. The signature is the only
// authentication, so the route is public.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var in models.VerifyPaymentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	b, err := h.Service.Verify(r.Context(), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Message: "Payment verified", Booking: b})
}
