package handlers

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"marketBack/internal/catalog"
	"marketBack/internal/geo"
	"marketBack/internal/models"
	"marketBack/internal/services"
)

const maxImageBytes = 10 << 20

type ServiceHandler struct {
	Service *services.ServiceService
	Reviews *services.ReviewService
	Log     *zap.SugaredLogger
}

func (h *ServiceHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Categories())
}

// Browse serves GET /services?q=&category=&sort=&lat=&lng=.
func (h *ServiceHandler) Browse(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := catalog.Query{
		Search:   query.Get("q"),
		Category: query.Get("category"),
		Sort:     query.Get("sort"),
		Viewer:   geo.Unknown,
	}
	if q.Sort != "" && !catalog.ValidSort(q.Sort) {
		writeError(w, h.Log, r, models.Invalid("unknown sort %q", q.Sort))
		return
	}
	lat, okLat := floatParam(r, "lat")
	lng, okLng := floatParam(r, "lng")
	if okLat && okLng {
		q.Viewer = geo.At(lat, lng)
	}

	list, err := h.Service.Browse(r.Context(), q)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	svc, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ServiceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	svc, err := h.Service.Create(r.Context(), SessionFrom(r.Context()), in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	var in models.ServiceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	svc, err := h.Service.Update(r.Context(), SessionFrom(r.Context()), id, in)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *ServiceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	if err := h.Service.Deactivate(r.Context(), SessionFrom(r.Context()), id); err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "service %d deactivated", id)
}

// UploadImage accepts a multipart form with an "image" file.
func (h *ServiceHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, h.Log, r, models.Invalid("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, h.Log, r, models.Invalid("image file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, h.Log, r, models.Invalid("unable to read image"))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	svc, err := h.Service.UploadImage(r.Context(), SessionFrom(r.Context()), id, data, header.Filename, contentType)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *ServiceHandler) Mine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListMine(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ServiceHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	reviews, err := h.Reviews.ListForService(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
