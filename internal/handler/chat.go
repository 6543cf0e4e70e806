package handler

import (
	"errors"
	"log/slog"
	"net/http"

	appI18n "github.com/biosecureindia/biosecure/internal/i18n"
	"github.com/biosecureindia/biosecure/internal/llm"
	"github.com/biosecureindia/biosecure/internal/model"
)

type chatRequest struct {
	model.ChatRequest
	// Messages is accepted as an alias of History.
	Messages []model.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// cors opens the chat relay to any origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.chatOutcome("bad_request")
		writeError(w, http.StatusBadRequest, appI18n.T(ctx, "InvalidRequest"))
		return
	}
	if len(req.History) == 0 {
		req.History = req.Messages
	}
	if req.Language == "" {
		req.Language = appI18n.Lang(ctx)
	}

	if !h.chatLimiter.Allow(h.chatClientKey(r)) {
		h.chatOutcome("throttled")
		writeError(w, http.StatusTooManyRequests, appI18n.T(ctx, "RateLimited"))
		return
	}

	reply, err := h.llm.Chat(ctx, req.ChatRequest)
	switch {
	case err == nil:
		h.chatOutcome("ok")
		writeJSON(w, http.StatusOK, chatResponse{Response: reply})
	case errors.Is(err, llm.ErrEmptyMessage):
		h.chatOutcome("bad_request")
		writeError(w, http.StatusBadRequest, appI18n.T(ctx, "MessageRequired"))
	case errors.Is(err, llm.ErrRateLimited):
		h.chatOutcome("rate_limited")
		writeError(w, http.StatusTooManyRequests, appI18n.T(ctx, "RateLimited"))
	case errors.Is(err, llm.ErrPaymentRequired):
		h.chatOutcome("payment_required")
		writeError(w, http.StatusPaymentRequired, appI18n.T(ctx, "PaymentRequired"))
	case errors.Is(err, llm.ErrNotConfigured):
		h.chatOutcome("not_configured")
		slog.Error("chat relay not configured")
		writeError(w, http.StatusInternalServerError, appI18n.T(ctx, "ChatNotConfigured"))
	default:
		h.chatOutcome("error")
		slog.Error("chat relay failed", "error", err)
		writeError(w, http.StatusInternalServerError, appI18n.T(ctx, "ChatFailed"))
	}
}

func (h *Handler) chatOutcome(outcome string) {
	h.metrics.ChatOutcomes.WithLabelValues(outcome).Inc()
}
