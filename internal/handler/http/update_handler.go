package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/hamza-damra/sales-management-backend/internal/appupdate"
)

type PublishVersionRequest struct {
	VersionName  string     `json:"versionName" validate:"required,min=1,max=32"`
	DownloadURL  string     `json:"downloadUrl" validate:"required,url"`
	FileName     string     `json:"fileName" validate:"max=255"`
	FileSize     int64      `json:"fileSize" validate:"gte=0"`
	Checksum     string     `json:"checksum" validate:"max=64"`
	ReleaseNotes string     `json:"releaseNotes"`
	Mandatory    bool       `json:"mandatory"`
	ReleaseDate  *time.Time `json:"releaseDate"`
}

type UpdateHandler struct {
	service  appupdate.Service
	validate *validator.Validate
}

func NewUpdateHandler(service appupdate.Service) *UpdateHandler {
	return &UpdateHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *UpdateHandler) RegisterRoutes(router chi.Router) {
	router.Route("/updates", func(r chi.Router) {
		r.Post("/versions", h.handlePublish)
		r.Get("/versions", h.handleList)
		r.Delete("/versions/{id}", h.handleWithdraw)
		r.Get("/latest", h.handleLatest)
		r.Get("/check/{version}", h.handleCheck)
	})
}

func (h *UpdateHandler) handlePublish(w http.ResponseWriter, r *http.Request) {
	var requestPayload PublishVersionRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode publish version request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	version := appupdate.Version{
		VersionName:  requestPayload.VersionName,
		DownloadURL:  requestPayload.DownloadURL,
		FileName:     requestPayload.FileName,
		FileSize:     requestPayload.FileSize,
		Checksum:     requestPayload.Checksum,
		ReleaseNotes: requestPayload.ReleaseNotes,
		Mandatory:    requestPayload.Mandatory,
	}
	if requestPayload.ReleaseDate != nil {
		version.ReleaseDate = *requestPayload.ReleaseDate
	}

	published, err := h.service.Publish(r.Context(), &version)
	if err != nil {
		respondServiceError(w, err, "Failed to publish version")
		return
	}
	respondWithJSON(w, http.StatusCreated, published)
}

func (h *UpdateHandler) handleList(w http.ResponseWriter, r *http.Request) {
	versions, err := h.service.List(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to list versions")
		return
	}
	respondWithJSON(w, http.StatusOK, versions)
}

func (h *UpdateHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.service.Latest(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to get latest version")
		return
	}
	respondWithJSON(w, http.StatusOK, latest)
}

func (h *UpdateHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	clientVersion := chi.URLParam(r, "version")
	if clientVersion == "" {
		respondWithError(w, http.StatusBadRequest, "Version parameter cannot be empty")
		return
	}

	result, err := h.service.Check(r.Context(), clientVersion)
	if err != nil {
		respondServiceError(w, err, "Failed to check for update")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *UpdateHandler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	withdrawn, err := h.service.Withdraw(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to withdraw version")
		return
	}
	respondWithJSON(w, http.StatusOK, withdrawn)
}
