package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"streakly/internal/history"
)

type HistoryHandler struct {
	sessions *history.Sessions
	clock    Clock
	logger   *zap.Logger
}

func NewHistoryHandler(sessions *history.Sessions, clock Clock, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{sessions: sessions, clock: clock, logger: logger}
}

type historyError struct {
	Error string                    `json:"error"`
	Stale *history.HistoryAggregate `json:"stale"`
}

// Get returns the 7-day chart, weekly average and 30-day timeline for the
// user. Accepts optional query param local_date=YYYY-MM-DD as the user's today.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	now, err := h.clock.at(r)
	if err != nil {
		http.Error(w, "invalid local_date format; expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	cache := h.sessions.Get(userID)
	// The fetch may be shared with other requests, so it must outlive this one.
	agg, err := cache.GetOrFetch(context.WithoutCancel(r.Context()), now)
	if r.Context().Err() != nil {
		// Client went away; the result is cached but nobody is left to read it.
		return
	}
	if err != nil {
		if errors.Is(err, history.ErrFetchFailed) {
			writeJSON(w, http.StatusServiceUnavailable, historyError{Error: "could not fetch history", Stale: cache.Peek()})
			return
		}
		h.logger.Error("build history", zap.Int("user_id", userID), zap.Error(err))
		http.Error(w, "could not build history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}
