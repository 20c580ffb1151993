package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/postgres"
	"github.com/cwrk-planet/presence-service/internal/service"
	httpmw "github.com/cwrk-planet/presence-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/presence-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	presenceSvc   *service.PresenceService
	predictionSvc *service.PredictionService
	responseSvc   *service.ResponseService
	dispatcher    *ws.Dispatcher
}

func NewHandler(presence *service.PresenceService, prediction *service.PredictionService, response *service.ResponseService, dispatcher *ws.Dispatcher) *Handler {
	return &Handler{
		presenceSvc:   presence,
		predictionSvc: prediction,
		responseSvc:   response,
		dispatcher:    dispatcher,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// userIDFromPath валидирует {id} и проверяет права: свой presence или staff.
func (h *Handler) userIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(userID); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return "", false
	}
	ident, ok := httpmw.IdentityFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return "", false
	}
	if ident.UserID != userID && !ident.Staff {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return "", false
	}
	return userID, true
}

// GET /users/{id}/presence
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(w, r)
	if !ok {
		return
	}

	st, err := h.presenceSvc.GetLatest(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrPresenceNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "presence not found"})
			return
		}
		slog.Error("handler.GetPresence:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, presenceItem(st))
}

// PATCH /users/{id}/presence
func (h *Handler) UpdatePresence(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(w, r)
	if !ok {
		return
	}

	var req UpdatePresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	st, changed, err := h.presenceSvc.SetStatus(r.Context(), userID, domain.Status(req.Status), req.DeviceType, time.Time{})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
			return
		case errors.Is(err, domain.ErrStaleTimestamp):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "stale timestamp"})
			return
		default:
			slog.Error("handler.UpdatePresence:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
	}

	// коммит уже сделан; рассылка только при фактической смене статуса
	if changed {
		h.dispatcher.Publish(r.Context(), st)
	}

	writeJSON(w, http.StatusOK, presenceItem(st))
}

// GET /users/{id}/presence/history?limit=&cursor=
func (h *Handler) GetPresenceHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(w, r)
	if !ok {
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	recs, next, err := h.presenceSvc.History(r.Context(), userID, limit, cursor)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetPresenceHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := PresenceHistoryResponse{Items: make([]PresenceRecordItem, 0, len(recs)), NextCursor: next}
	for _, rec := range recs {
		resp.Items = append(resp.Items, PresenceRecordItem{
			ID:           rec.ID,
			Status:       string(rec.Status),
			DeviceType:   rec.DeviceType,
			ChangedAt:    rec.ChangedAt,
			DwellSeconds: rec.DwellSeconds,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /users/{id}/response-time-prediction
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(w, r)
	if !ok {
		return
	}

	seconds, err := h.predictionSvc.Predict(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrPresenceNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "presence not found"})
			return
		}
		slog.Error("handler.GetPrediction:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, PredictionResponse{
		PredictedResponseTime:        seconds,
		PredictedResponseTimeDisplay: service.HumanizeSeconds(seconds),
	})
}

// POST /users/{id}/responses
func (h *Handler) RecordResponse(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromPath(w, r)
	if !ok {
		return
	}

	var req RecordResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	ev, err := h.responseSvc.Record(r.Context(), userID, req.MessageID, req.ReceivedAt, req.RespondedAt, domain.Status(req.PresenceStatus))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidResponseWindow),
			errors.Is(err, domain.ErrInvalidStatus),
			errors.Is(err, domain.ErrEmptyMessageID):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		default:
			slog.Error("handler.RecordResponse:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusCreated, ResponseEventItem{
		ID:              ev.ID,
		UserID:          ev.UserID,
		MessageID:       ev.MessageID,
		ReceivedAt:      ev.ReceivedAt,
		RespondedAt:     ev.RespondedAt,
		PresenceStatus:  string(ev.PresenceStatus),
		ResponseSeconds: ev.ResponseSeconds,
	})
}

func presenceItem(st *domain.PresenceState) PresenceItem {
	return PresenceItem{
		UserID:     st.UserID,
		Status:     string(st.Status),
		DeviceType: st.DeviceType,
		LastSeen:   st.LastSeen,
	}
}
