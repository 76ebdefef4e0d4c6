// Package handler provides HTTP handlers for record-related operations.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/abgdnv/recordstore/internal/platform/web"
	recorderrors "github.com/abgdnv/recordstore/internal/record/errors"
	"github.com/abgdnv/recordstore/internal/record/service"
	"github.com/go-chi/chi/v5"
)

// RecordsPath is the collection route for records.
const RecordsPath = "/api/v1/records"

// validationMessages are the user facing texts for each validation failure.
var validationMessages = []struct {
	err     error
	message string
}{
	{recorderrors.ErrInvalidName, "Invalid name"},
	{recorderrors.ErrInvalidKind, "Invalid type"},
	{recorderrors.ErrInvalidPrice, "Invalid price"},
	{recorderrors.ErrInvalidDuration, "Invalid duration"},
	{recorderrors.ErrInvalidFrequency, "Invalid frequency"},
}

type Handler struct {
	service service.RecordService
	logger  *slog.Logger
}

// NewHandler creates a new record Handler with the provided service.
func NewHandler(service service.RecordService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the record service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route(RecordsPath, func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
	})

	r.Get("/healthz", h.HealthCheck)
}

// List returns all records grouped by kind.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received request to list records")
	list := h.service.ListRecords(r.Context())
	h.logger.DebugContext(r.Context(), "Successfully listed records",
		"products", len(list.Product),
		"services", len(list.Service),
		"subscriptions", len(list.Subscription),
	)
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

// Create handles the creation of a new record.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateRequest(w, r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to create record", "type", req.Type.Value)

	created, err := h.service.CreateRecord(r.Context(), req)
	if err != nil {
		if message, ok := validationMessage(err); ok {
			h.logger.WarnContext(r.Context(), "Record validation failed", "error", err)
			web.RespondError(w, h.logger, http.StatusBadRequest, message)
			return
		}
		h.logger.ErrorContext(r.Context(), "Error creating record", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to create record")
		return
	}
	h.logger.InfoContext(r.Context(), "Record created successfully", "ID", created.ID, "type", created.Type)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func validationMessage(err error) (string, bool) {
	for _, vm := range validationMessages {
		if errors.Is(err, vm.err) {
			return vm.message, true
		}
	}
	return "", false
}
