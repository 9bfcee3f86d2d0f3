package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"fraud-detection-service/internal/service"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

type RecordHandler struct {
	service *service.RecordService
	logger  *zap.Logger
}

func NewRecordHandler(service *service.RecordService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{service: service, logger: logger}
}

func (h *RecordHandler) RegisterRoutes(r chi.Router) {
	r.Get("/records", h.GetRecords)
	r.Get("/records/{id}", h.GetRecordByID)
	r.Get("/records/account/{id}", h.GetRecordsByAccountID)
	r.Get("/records/recipient/{id}", h.GetRecordsByRecipientID)
	r.Delete("/cache", h.ClearCache)
}

func (h *RecordHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	offset, limit := paginationParams(r)

	response, err := h.service.GetRecords(r.Context(), offset, limit)
	if err != nil {
		h.logger.Error("failed to get records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get records")
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *RecordHandler) GetRecordByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	records, err := h.service.GetRecordByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get record", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get record")
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *RecordHandler) GetRecordsByAccountID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	offset, limit := paginationParams(r)

	response, err := h.service.GetRecordsByAccountID(r.Context(), id, offset, limit)
	if err != nil {
		h.logger.Error("failed to get records by account",
			zap.Int64("account_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get records")
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *RecordHandler) GetRecordsByRecipientID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient id")
		return
	}
	offset, limit := paginationParams(r)

	response, err := h.service.GetRecordsByRecipientID(r.Context(), id, offset, limit)
	if err != nil {
		h.logger.Error("failed to get records by recipient",
			zap.Int64("recipient_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get records")
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// ClearCache flushes every cached query page. Meant for operators after an
// out-of-band correction to stored records.
func (h *RecordHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearRecordCaches(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "record caches cleared"})
}

func paginationParams(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
